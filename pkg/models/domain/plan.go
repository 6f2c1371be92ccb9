package domain

import "fmt"

type ActionKind string

const (
	ActionAppend ActionKind = "APPEND"
	ActionUpdate ActionKind = "UPDATE"
)

// Action is a single ledger mutation
type Action struct {
	Kind     ActionKind
	Position int // target row, UPDATE only
	Row      NormalizedRow
}

func (a Action) String() string {
	if a.Kind == ActionUpdate {
		return fmt.Sprintf("UPDATE row %d (%s)", a.Position, a.Row.Title)
	}
	return fmt.Sprintf("APPEND (%s)", a.Row.Title)
}

// WritePlan is the ordered set of actions needed to bring the ledger in line for one period
type WritePlan struct {
	Period  Period
	Actions []Action
}

func (p WritePlan) Empty() bool {
	return len(p.Actions) == 0
}

func (p WritePlan) Count(kind ActionKind) int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// ActionResult is the outcome of applying one action
type ActionResult struct {
	Action  Action
	Success bool
	Err     error
}

func (r ActionResult) Kind() ErrorKind {
	if r.Err == nil {
		return ""
	}
	return KindOf(r.Err)
}

package period

import (
	"fmt"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

// Resolve returns the calendar month preceding the month of now.
// The month is taken in now's own location.
func Resolve(now time.Time) (domain.Period, error) {
	if now.IsZero() {
		return domain.Period{}, domain.NewInvalidInputError("cannot resolve period from zero time", nil)
	}
	if now.Year() < 1 || now.Year() > 9999 {
		return domain.Period{}, domain.NewInvalidInputError(fmt.Sprintf("timestamp year %d out of range", now.Year()), nil)
	}

	current := domain.Period{Year: now.Year(), Month: now.Month()}
	prev := current.Prev()
	if !prev.Valid() {
		return domain.Period{}, domain.NewInvalidInputError(fmt.Sprintf("no period precedes %s", current), nil)
	}
	return prev, nil
}

// Range expands an inclusive period range in ascending order
func Range(from, to domain.Period) ([]domain.Period, error) {
	if !from.Valid() || !to.Valid() {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid period range %s..%s", from, to), nil)
	}
	if to.Before(from) {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("period range end %s is before start %s", to, from), nil)
	}

	var periods []domain.Period
	for p := from; !to.Before(p); p = p.Next() {
		periods = append(periods, p)
	}
	return periods, nil
}

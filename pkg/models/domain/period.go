package domain

import (
	"fmt"
	"time"
)

// Period identifies one monthly reporting cycle
type Period struct {
	Year  int
	Month time.Month
}

const periodLayout = "2006-01"

// ParsePeriod parses a period key in the YYYY-MM form
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return Period{}, NewInvalidInputError(fmt.Sprintf("invalid period %q, expected YYYY-MM", s), err)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) String() string {
	return p.Key()
}

// Compact returns the YYYYMM form used in archive file names
func (p Period) Compact() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

func (p Period) MonthName() string {
	return p.Month.String()
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p Period) Valid() bool {
	return p.Year >= 1 && p.Year <= 9999 && p.Month >= time.January && p.Month <= time.December
}

// Start is the first day of the period in UTC
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last day of the period in UTC
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

func (p Period) Prev() Period {
	t := p.Start().AddDate(0, -1, 0)
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) Next() Period {
	t := p.Start().AddDate(0, 1, 0)
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

package period

import (
	"errors"
	"testing"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want domain.Period
	}{
		{
			name: "mid year",
			now:  time.Date(2024, time.July, 15, 10, 0, 0, 0, time.UTC),
			want: domain.Period{Year: 2024, Month: time.June},
		},
		{
			name: "january rolls the year back",
			now:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			want: domain.Period{Year: 2024, Month: time.December},
		},
		{
			name: "last instant of a month",
			now:  time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC),
			want: domain.Period{Year: 2024, Month: time.February},
		},
		{
			name: "uses the timestamp location",
			now:  time.Date(2024, time.May, 1, 0, 30, 0, 0, time.FixedZone("CEST", 2*60*60)),
			want: domain.Period{Year: 2024, Month: time.April},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_InvalidInput(t *testing.T) {
	_, err := Resolve(time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = Resolve(time.Date(1, time.January, 5, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestRange(t *testing.T) {
	from := domain.Period{Year: 2023, Month: time.November}
	to := domain.Period{Year: 2024, Month: time.February}

	periods, err := Range(from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-11", "2023-12", "2024-01", "2024-02"}, keys(periods))

	single, err := Range(from, from)
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = Range(to, from)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func keys(periods []domain.Period) []string {
	out := make([]string, 0, len(periods))
	for _, p := range periods {
		out = append(out, p.Key())
	}
	return out
}

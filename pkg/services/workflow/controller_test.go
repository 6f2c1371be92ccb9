package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBackfill_SyncsEveryPeriodInOrder(t *testing.T) {
	// Given
	f := setupFixture(t)
	jan := domain.Period{Year: 2024, Month: time.January}
	feb := domain.Period{Year: 2024, Month: time.February}
	for _, p := range []domain.Period{jan, feb, march} {
		f.source.On("Fetch", mock.Anything, p).Return(report(p), nil).Once()
	}
	ctrl := NewController(f.runner, 2)

	// When
	summaries, err := ctrl.Backfill(f.ctx, jan, march, false)

	// Then
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	for i, p := range []domain.Period{jan, feb, march} {
		assert.Equal(t, p, summaries[i].Period)
		assert.True(t, summaries[i].Succeeded())
		assert.True(t, summaries[i].ArchiveHit, "prefetched before the sequential pass")
	}
	assert.Len(t, f.ledger.Rows(), 9)
	assert.Equal(t, jan, f.ledger.Rows()[0].Period)
	f.source.AssertExpectations(t)
}

func TestBackfill_StopsOnAuthenticationFailure(t *testing.T) {
	f := setupFixture(t)
	jan := domain.Period{Year: 2024, Month: time.January}
	f.source.On("Fetch", mock.Anything, mock.Anything).
		Return(domain.RawReport{}, domain.NewAuthenticationError("locked out", nil))

	_, err := NewController(f.runner, 1).Backfill(f.ctx, jan, march, false)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthentication))
	assert.Empty(t, f.ledger.Rows())
}

func TestBackfill_TransientFailureDoesNotStopOtherPeriods(t *testing.T) {
	f := setupFixture(t)
	feb := domain.Period{Year: 2024, Month: time.February}
	f.source.On("Fetch", mock.Anything, feb).
		Return(domain.RawReport{}, domain.NewSourceUnavailableError("timeout", nil))
	f.source.On("Fetch", mock.Anything, march).Return(report(march), nil)

	summaries, err := NewController(f.runner, 2).Backfill(f.ctx, feb, march, false)

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, domain.StageFailed, summaries[0].Stage)
	assert.True(t, summaries[1].Succeeded())
}

func TestBackfill_InvalidRange(t *testing.T) {
	f := setupFixture(t)

	_, err := NewController(f.runner, 0).Backfill(f.ctx, march, domain.Period{Year: 2024, Month: time.January}, false)

	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestPreview(t *testing.T) {
	f := setupFixture(t)
	ctrl := NewController(f.runner, 0)

	_, err := ctrl.Preview(f.ctx, march)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "never fetches")

	require.NoError(t, f.archive.Store(f.ctx, march, report(march)))
	plan, err := ctrl.Preview(f.ctx, march)

	require.NoError(t, err)
	assert.Equal(t, 3, plan.Count(domain.ActionAppend))
	assert.Empty(t, f.ledger.Rows())
	f.source.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

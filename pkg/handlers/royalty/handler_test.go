package royalty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/api"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/models/store"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) List(ctx context.Context) ([]domain.ArchiveRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.ArchiveRecord), args.Error(1)
}

type mockPlanner struct {
	mock.Mock
}

func (m *mockPlanner) Preview(ctx context.Context, p domain.Period) (domain.WritePlan, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.WritePlan), args.Error(1)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) Latest(ctx context.Context, limit int) ([]store.SyncRun, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]store.SyncRun), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Products(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func withPeriod(req *http.Request, period string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("period", period)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestListPeriods(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*mockArchive)
		expectedStatus int
		expectedBody   []api.ArchiveRecord
	}{
		{
			name: "empty archive",
			setupMock: func(m *mockArchive) {
				m.On("List", mock.Anything).Return([]domain.ArchiveRecord{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []api.ArchiveRecord{},
		},
		{
			name: "archived periods",
			setupMock: func(m *mockArchive) {
				m.On("List", mock.Anything).Return([]domain.ArchiveRecord{
					{Period: domain.Period{Year: 2024, Month: time.January}, Rows: 2, Source: "filedrop"},
					{Period: domain.Period{Year: 2024, Month: time.February}, Rows: 5, Source: "portal"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: []api.ArchiveRecord{
				{Period: "2024-01", Rows: 2, Source: "filedrop"},
				{Period: "2024-02", Rows: 5, Source: "portal"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := new(mockArchive)
			tt.setupMock(archive)
			h := NewHandler(archive, new(mockPlanner), new(mockJournal), new(mockCatalog))

			req := httptest.NewRequest("GET", "/periods", nil)
			rec := httptest.NewRecorder()

			h.ListPeriods(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			var response []api.ArchiveRecord
			err := json.NewDecoder(rec.Body).Decode(&response)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedBody, response)

			archive.AssertExpectations(t)
		})
	}
}

func TestGetPlan(t *testing.T) {
	june := domain.Period{Year: 2024, Month: time.June}

	tests := []struct {
		name           string
		period         string
		setupMock      func(*mockPlanner)
		expectedStatus int
		expectedKind   string
	}{
		{
			name:   "empty plan",
			period: "2024-06",
			setupMock: func(m *mockPlanner) {
				m.On("Preview", mock.Anything, june).Return(domain.WritePlan{Period: june}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed period",
			period:         "June",
			setupMock:      func(*mockPlanner) {},
			expectedStatus: http.StatusBadRequest,
			expectedKind:   "INVALID_INPUT",
		},
		{
			name:   "ledger unreachable",
			period: "2024-06",
			setupMock: func(m *mockPlanner) {
				m.On("Preview", mock.Anything, june).
					Return(domain.WritePlan{}, domain.NewSourceUnavailableError("sheets api returned 503", nil))
			},
			expectedStatus: http.StatusBadGateway,
			expectedKind:   "SOURCE_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := new(mockPlanner)
			tt.setupMock(planner)
			h := NewHandler(new(mockArchive), planner, new(mockJournal), new(mockCatalog))

			req := withPeriod(httptest.NewRequest("GET", "/periods/"+tt.period+"/plan", nil), tt.period)
			rec := httptest.NewRecorder()

			h.GetPlan(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedKind == "" {
				var response api.WritePlan
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
				assert.Equal(t, "2024-06", response.Period)
				assert.Empty(t, response.Actions)
			} else {
				var response api.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
				assert.Equal(t, tt.expectedKind, response.Kind)
				assert.NotEmpty(t, response.Error)
			}

			planner.AssertExpectations(t)
		})
	}
}

func TestListRuns_LimitBounds(t *testing.T) {
	for _, limit := range []string{"0", "-1", "501", "ten"} {
		t.Run(limit, func(t *testing.T) {
			journal := new(mockJournal)
			h := NewHandler(new(mockArchive), new(mockPlanner), journal, new(mockCatalog))

			req := httptest.NewRequest("GET", "/runs?limit="+limit, nil)
			rec := httptest.NewRecorder()

			h.ListRuns(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			journal.AssertNotCalled(t, "Latest", mock.Anything, mock.Anything)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{domain.NewInvalidInputError("bad", nil), http.StatusBadRequest},
		{domain.NewNotFoundError("missing"), http.StatusNotFound},
		{domain.NewSchemaError("no title column", nil), http.StatusUnprocessableEntity},
		{domain.NewAuthenticationError("login rejected", nil), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", domain.NewNotFoundError("missing")), http.StatusNotFound},
		{domain.NewWriteError("update failed", nil), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestListProducts(t *testing.T) {
	pages := 32
	tests := []struct {
		name           string
		setupMock      func(*mockCatalog)
		expectedStatus int
		expectedBody   []api.Product
	}{
		{
			name: "nothing crawled yet",
			setupMock: func(m *mockCatalog) {
				m.On("Products", mock.Anything).Return([]domain.Product{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []api.Product{},
		},
		{
			name: "crawled products",
			setupMock: func(m *mockCatalog) {
				m.On("Products", mock.Anything).Return([]domain.Product{{
					URL:     "https://store.example/product/1",
					Name:    "Abyssal Depths",
					Authors: []string{"A. Writer"},
					Pages:   &pages,
					Price:   decimal.NewNullDecimal(decimal.RequireFromString("4.5")),
				}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: []api.Product{{
				URL:     "https://store.example/product/1",
				Name:    "Abyssal Depths",
				Authors: []string{"A. Writer"},
				Pages:   &pages,
				Price:   strPtr("4.50"),
			}},
		},
		{
			name: "store failure",
			setupMock: func(m *mockCatalog) {
				m.On("Products", mock.Anything).Return([]domain.Product(nil), errors.New("db closed"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := new(mockCatalog)
			tt.setupMock(catalog)
			h := NewHandler(new(mockArchive), new(mockPlanner), new(mockJournal), catalog)

			req := httptest.NewRequest("GET", "/catalog", nil)
			rec := httptest.NewRecorder()

			h.ListProducts(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != nil {
				var response []api.Product
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
				assert.Equal(t, tt.expectedBody, response)
			}
			catalog.AssertExpectations(t)
		})
	}
}

func strPtr(s string) *string {
	return &s
}

package royalty

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/de-tools/royalty-ledger/pkg/adapters"
	"github.com/de-tools/royalty-ledger/pkg/models/api"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/models/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

type ArchiveLister interface {
	List(ctx context.Context) ([]domain.ArchiveRecord, error)
}

type Planner interface {
	Preview(ctx context.Context, p domain.Period) (domain.WritePlan, error)
}

type RunJournal interface {
	Latest(ctx context.Context, limit int) ([]store.SyncRun, error)
}

type CatalogLister interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

type Handler struct {
	archive ArchiveLister
	planner Planner
	journal RunJournal
	catalog CatalogLister
}

func NewHandler(archive ArchiveLister, planner Planner, journal RunJournal, catalog CatalogLister) *Handler {
	return &Handler{
		archive: archive,
		planner: planner,
		journal: journal,
		catalog: catalog,
	}
}

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.archive.List(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	response := make([]api.ArchiveRecord, 0, len(records))
	for _, rec := range records {
		response = append(response, adapters.MapArchiveRecordDomainToApi(rec))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := domain.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	plan, err := h.planner.Preview(ctx, p)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapWritePlanDomainToApi(plan))
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			writeError(ctx, w, domain.NewInvalidInputError("limit must be between 1 and 500", err))
			return
		}
		limit = n
	}

	runs, err := h.journal.Latest(ctx, limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	response := make([]api.SyncRun, 0, len(runs))
	for _, run := range runs {
		response = append(response, adapters.MapSyncRunDomainToApi(adapters.MapStoreRunToDomain(run)))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.catalog.Products(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	response := make([]api.Product, 0, len(products))
	for _, p := range products {
		response = append(response, adapters.MapProductDomainToApi(p))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func statusFor(err error) int {
	var de *domain.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindSchema:
		return http.StatusUnprocessableEntity
	case domain.KindSourceUnavailable, domain.KindAuthentication:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(ctx).Error().Err(err).Msg("request failed")
	}
	resp := api.ErrorResponse{Error: err.Error()}
	if kind := domain.KindOf(err); kind != domain.KindInternal {
		resp.Kind = string(kind)
	}
	writeJSON(ctx, w, status, resp)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

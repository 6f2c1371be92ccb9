package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/services/normalize"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsAPI is the slice of the Sheets v4 API the ledger needs
type SheetsAPI interface {
	GetValues(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
	AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (string, error)
	SheetID(ctx context.Context, spreadsheetID, title string) (int64, error)
	BatchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error
}

type SheetsConfig struct {
	SpreadsheetID   string
	Sheet           string
	CredentialsFile string
	DefaultCurrency string
}

type SheetsStore struct {
	api             SheetsAPI
	spreadsheetID   string
	sheet           string
	defaultCurrency string
}

// NewSheetsStore authenticates with a service account file, or application default
// credentials when no file is configured
func NewSheetsStore(ctx context.Context, cfg SheetsConfig) (*SheetsStore, error) {
	if cfg.SpreadsheetID == "" {
		return nil, domain.NewInvalidInputError("ledger spreadsheet_id is required", nil)
	}

	var creds *google.Credentials
	var err error
	if cfg.CredentialsFile != "" {
		data, readErr := os.ReadFile(cfg.CredentialsFile)
		if readErr != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("read ledger credentials %s", cfg.CredentialsFile), readErr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, sheets.SpreadsheetsScope)
	}
	if err != nil {
		return nil, domain.NewAuthenticationError("google credentials", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewSheetsStoreWithAPI(&serviceAPI{svc: svc}, cfg), nil
}

func NewSheetsStoreWithAPI(api SheetsAPI, cfg SheetsConfig) *SheetsStore {
	if cfg.Sheet == "" {
		cfg.Sheet = DefaultSheet
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = DefaultCurrency
	}
	return &SheetsStore{
		api:             api,
		spreadsheetID:   cfg.SpreadsheetID,
		sheet:           cfg.Sheet,
		defaultCurrency: cfg.DefaultCurrency,
	}
}

// a1Sheet quotes the sheet title for A1 ranges
func (s *SheetsStore) a1Sheet() string {
	return "'" + strings.ReplaceAll(s.sheet, "'", "''") + "'"
}

// dataRange covers the whole sheet, whatever its width
func (s *SheetsStore) dataRange() string {
	return s.a1Sheet()
}

func (s *SheetsStore) headerRange() string {
	return s.a1Sheet() + "!1:1"
}

func (s *SheetsStore) rowRange(l layout, position int) string {
	return fmt.Sprintf("%s!A%d:%s%d", s.a1Sheet(), position, columnLetter(l.width-1), position)
}

func (s *SheetsStore) appendRange(l layout) string {
	return fmt.Sprintf("%s!A:%s", s.a1Sheet(), columnLetter(l.width-1))
}

func (s *SheetsStore) Read(ctx context.Context, p domain.Period) ([]domain.LedgerEntry, error) {
	logger := zerolog.Ctx(ctx).With().Str("period", p.Key()).Str("sheet", s.sheet).Logger()

	values, err := s.api.GetValues(ctx, s.spreadsheetID, s.dataRange())
	if err != nil {
		return nil, classify("read ledger", err, domain.NewSourceUnavailableError)
	}
	if len(values) == 0 || len(values[0]) == 0 {
		logger.Debug().Msg("ledger is empty")
		return nil, nil
	}

	l, err := parseLayout(values[0])
	if err != nil {
		return nil, err
	}

	var entries []domain.LedgerEntry
	stale := 0
	for i, cells := range values[1:] {
		entry, ok := decodeRow(l, cells, i+2, s.defaultCurrency)
		if !ok || entry.Period != p {
			continue
		}
		if l.get(cells, ColRowHash) != entry.Hash {
			stale++
		}
		entries = append(entries, entry)
	}

	if stale > 0 {
		logger.Info().Int("stale_hashes", stale).Str("hash_version", normalize.HashVersion).
			Msg("ledger rows carry a missing or outdated Row_Hash; using the recomputed one")
	}
	logger.Debug().Int("entries", len(entries)).Int("rows", len(values)-1).Msg("read ledger")
	return entries, nil
}

type writtenRow struct {
	position int
	currency string
}

func (s *SheetsStore) Apply(ctx context.Context, plan domain.WritePlan) []domain.ActionResult {
	logger := zerolog.Ctx(ctx).With().Str("period", plan.Period.Key()).Str("sheet", s.sheet).Logger()
	results := make([]domain.ActionResult, 0, len(plan.Actions))
	if len(plan.Actions) == 0 {
		return results
	}

	l, layoutErr := s.resolveLayout(ctx)
	if layoutErr != nil {
		logger.Error().Err(layoutErr).Msg("cannot resolve ledger layout")
	}

	var written []writtenRow
	for _, a := range plan.Actions {
		var err error
		position := 0
		switch {
		case layoutErr != nil:
			err = layoutErr
		case a.Kind == domain.ActionUpdate:
			err = s.api.UpdateValues(ctx, s.spreadsheetID, s.rowRange(l, a.Position), [][]interface{}{l.encode(a.Row)})
			position = a.Position
		case a.Kind == domain.ActionAppend:
			var rng string
			rng, err = s.api.AppendValues(ctx, s.spreadsheetID, s.appendRange(l), [][]interface{}{l.encode(a.Row)})
			if err == nil {
				position, _ = rangeStartRow(rng)
				logger.Debug().Str("range", rng).Str("title", a.Row.Title).Msg("appended row")
			}
		default:
			err = domain.NewInvalidInputError("unknown action "+string(a.Kind), nil)
		}

		if err != nil {
			logger.Error().Err(err).Str("action", a.String()).Msg("ledger write failed")
			results = append(results, domain.ActionResult{Action: a, Err: classify(a.String(), err, domain.NewWriteError)})
			continue
		}
		if position > 0 {
			written = append(written, writtenRow{position: position, currency: a.Row.Royalty.Currency})
		}
		results = append(results, domain.ActionResult{Action: a, Success: true})
	}

	if len(written) > 0 {
		if err := s.formatCurrency(ctx, l, written); err != nil {
			logger.Warn().Err(err).Msg("could not apply currency formatting")
		}
	}
	return results
}

// resolveLayout reads the header row. An empty sheet gets the full header; a sheet
// missing some known columns, such as one written before Currency and Row_Hash
// existed, gets them added after its last header cell.
func (s *SheetsStore) resolveLayout(ctx context.Context) (layout, error) {
	values, err := s.api.GetValues(ctx, s.spreadsheetID, s.headerRange())
	if err != nil {
		return layout{}, fmt.Errorf("read ledger header: %w", err)
	}

	if len(values) == 0 || len(values[0]) == 0 {
		l := defaultLayout()
		zerolog.Ctx(ctx).Info().Str("sheet", s.sheet).Msg("writing ledger header")
		rng := fmt.Sprintf("%s!A1:%s1", s.a1Sheet(), columnLetter(l.width-1))
		if err := s.api.UpdateValues(ctx, s.spreadsheetID, rng, [][]interface{}{headerRow(Header)}); err != nil {
			return layout{}, fmt.Errorf("write ledger header: %w", err)
		}
		return l, nil
	}

	l, err := parseLayout(values[0])
	if err != nil {
		return layout{}, err
	}
	missing := l.missing()
	if len(missing) == 0 {
		return l, nil
	}

	zerolog.Ctx(ctx).Info().Str("sheet", s.sheet).Strs("columns", missing).Msg("adding ledger columns")
	rng := fmt.Sprintf("%s!%s1:%s1", s.a1Sheet(), columnLetter(l.width), columnLetter(l.width+len(missing)-1))
	if err := s.api.UpdateValues(ctx, s.spreadsheetID, rng, [][]interface{}{headerRow(missing)}); err != nil {
		return layout{}, fmt.Errorf("extend ledger header: %w", err)
	}
	return l.extend(missing), nil
}

// formatCurrency sets the number format of the Net and Royalties cells of each
// written row from that row's currency
func (s *SheetsStore) formatCurrency(ctx context.Context, l layout, rows []writtenRow) error {
	sheetID, err := s.api.SheetID(ctx, s.spreadsheetID, s.sheet)
	if err != nil {
		return err
	}

	var requests []*sheets.Request
	for _, r := range rows {
		for _, col := range []string{ColNet, ColRoyalties} {
			idx, ok := l.index[col]
			if !ok {
				continue
			}
			requests = append(requests, &sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    int64(r.position - 1),
						EndRowIndex:      int64(r.position),
						StartColumnIndex: int64(idx),
						EndColumnIndex:   int64(idx + 1),
						ForceSendFields:  []string{"SheetId"},
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: currencyPattern(r.currency)},
						},
					},
					Fields: "userEnteredFormat.numberFormat",
				},
			})
		}
	}
	if len(requests) == 0 {
		return nil
	}
	return s.api.BatchUpdate(ctx, s.spreadsheetID, requests)
}

// classify maps Google API auth failures onto AuthenticationError and everything
// else onto the kind built by fallback
func classify(msg string, err error, fallback func(string, error) *domain.Error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		return domain.NewAuthenticationError(msg, err)
	}
	return fallback(msg, err)
}

type serviceAPI struct {
	svc *sheets.Service
}

func (a *serviceAPI) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (a *serviceAPI) UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := a.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return err
}

func (a *serviceAPI) AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (string, error) {
	resp, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return "", nil
}

func (a *serviceAPI) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	resp, err := a.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, domain.NewNotFoundError(fmt.Sprintf("sheet %q not found", title))
}

func (a *serviceAPI) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error {
	_, err := a.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).Do()
	return err
}

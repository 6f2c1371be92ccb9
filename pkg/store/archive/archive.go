package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/adapters"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	archiveindex "github.com/de-tools/royalty-ledger/pkg/store/duckdb/archive"
	"github.com/rs/zerolog"
)

const (
	filePrefix = "royalties_"
	// earlier exports are named after the month they were downloaded in, one month after
	// the period they cover
	legacyPrefix = "dmsguild_report_"
)

// Archive is the local cache of fetched raw reports. Each period is one CSV file
// in dir, indexed in DuckDB and optionally mirrored to object storage.
type Archive interface {
	Has(ctx context.Context, p domain.Period) (bool, error)
	Load(ctx context.Context, p domain.Period) (domain.RawReport, error)
	Store(ctx context.Context, p domain.Period, raw domain.RawReport) error
	List(ctx context.Context) ([]domain.ArchiveRecord, error)
}

type Options struct {
	Dir    string
	Index  archiveindex.Index
	Mirror Mirror // optional
	// LegacyDir holds dmsguild_report_YYYYMM.csv exports to adopt; empty disables adoption
	LegacyDir string
	Now    func() time.Time
}

type fsArchive struct {
	dir    string
	index  archiveindex.Index
	mirror Mirror
	legacy string
	now    func() time.Time
}

func New(opts Options) (Archive, error) {
	if opts.Dir == "" {
		return nil, domain.NewInvalidInputError("archive directory is required", nil)
	}
	if opts.Index == nil {
		return nil, domain.NewInvalidInputError("archive index is required", nil)
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir %s: %w", opts.Dir, err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &fsArchive{
		dir:    opts.Dir,
		index:  opts.Index,
		mirror: opts.Mirror,
		legacy: opts.LegacyDir,
		now:    opts.Now,
	}, nil
}

// FileName is the archive artifact name for a period
func FileName(p domain.Period) string {
	return filePrefix + p.Compact() + ".csv"
}

// LegacyFileName is the name an earlier export of p was saved under
func LegacyFileName(p domain.Period) string {
	return legacyPrefix + p.Next().Compact() + ".csv"
}

func (a *fsArchive) path(p domain.Period) string {
	return filepath.Join(a.dir, FileName(p))
}

func (a *fsArchive) Has(ctx context.Context, p domain.Period) (bool, error) {
	logger := zerolog.Ctx(ctx).With().Str("period", p.Key()).Logger()
	path := a.path(p)

	info, err := os.Stat(path)
	switch {
	case err == nil:
		rec, err := a.index.Get(ctx, p.Key())
		if err != nil {
			return false, err
		}
		if rec == nil {
			logger.Info().Str("path", path).Msg("indexing archived report found on disk")
			data, err := os.ReadFile(path)
			if err != nil {
				return false, fmt.Errorf("read archived report %s: %w", path, err)
			}
			if err := a.putIndex(ctx, p, data, "archive", info.ModTime()); err != nil {
				return false, err
			}
		}
		return true, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("stat archived report %s: %w", path, err)
	}

	if adopted, err := a.adoptLegacy(ctx, p); err != nil || adopted {
		return adopted, err
	}

	if a.mirror == nil {
		return false, nil
	}

	data, err := a.mirror.Get(ctx, FileName(p))
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		// the mirror is a backup; fall through to a fetch
		logger.Warn().Err(err).Msg("archive mirror lookup failed")
		return false, nil
	}

	logger.Info().Msg("restoring archived report from mirror")
	if err := writeFileAtomic(path, data); err != nil {
		return false, err
	}
	if err := a.putIndex(ctx, p, data, "mirror", a.now()); err != nil {
		return false, err
	}
	return true, nil
}

// adoptLegacy copies an earlier export into the archive. The legacy file is left in place.
func (a *fsArchive) adoptLegacy(ctx context.Context, p domain.Period) (bool, error) {
	if a.legacy == "" {
		return false, nil
	}
	src := filepath.Join(a.legacy, LegacyFileName(p))
	data, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read legacy report %s: %w", src, err)
	}
	if _, _, err := decodeCSV(data); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", src).Msg("ignoring legacy report that is not valid CSV")
		return false, nil
	}

	zerolog.Ctx(ctx).Info().Str("period", p.Key()).Str("path", src).Msg("adopting legacy report")
	if err := writeFileAtomic(a.path(p), data); err != nil {
		return false, err
	}
	if err := a.putIndex(ctx, p, data, "legacy", a.now()); err != nil {
		return false, err
	}
	return true, nil
}

func (a *fsArchive) Load(ctx context.Context, p domain.Period) (domain.RawReport, error) {
	ok, err := a.Has(ctx, p)
	if err != nil {
		return domain.RawReport{}, err
	}
	if !ok {
		return domain.RawReport{}, domain.NewNotFoundError(fmt.Sprintf("no archived report for %s", p))
	}

	data, err := os.ReadFile(a.path(p))
	if err != nil {
		return domain.RawReport{}, fmt.Errorf("read archived report: %w", err)
	}
	header, rows, err := decodeCSV(data)
	if err != nil {
		return domain.RawReport{}, domain.NewSchemaError(fmt.Sprintf("archived report for %s is not valid CSV", p), err)
	}

	raw := domain.RawReport{Period: p, Header: header, Rows: rows, Source: "archive"}
	rec, err := a.index.Get(ctx, p.Key())
	if err != nil {
		return domain.RawReport{}, err
	}
	if rec != nil {
		raw.FetchedAt = rec.FetchedAt
	}
	return raw, nil
}

// Store writes the report verbatim, replacing any earlier artifact for the period
func (a *fsArchive) Store(ctx context.Context, p domain.Period, raw domain.RawReport) error {
	logger := zerolog.Ctx(ctx).With().Str("period", p.Key()).Logger()

	data, err := encodeCSV(raw.Header, raw.Rows)
	if err != nil {
		return fmt.Errorf("encode report for %s: %w", p, err)
	}
	if err := writeFileAtomic(a.path(p), data); err != nil {
		return err
	}

	fetchedAt := raw.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = a.now()
	}
	if err := a.putIndex(ctx, p, data, raw.Source, fetchedAt); err != nil {
		return err
	}

	if a.mirror != nil {
		if err := a.mirror.Put(ctx, FileName(p), data); err != nil {
			logger.Warn().Err(err).Msg("failed to mirror archived report")
		}
	}

	logger.Info().Str("path", a.path(p)).Int("rows", len(raw.Rows)).Msg("archived raw report")
	return nil
}

func (a *fsArchive) List(ctx context.Context) ([]domain.ArchiveRecord, error) {
	records, err := a.index.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ArchiveRecord, 0, len(records))
	for _, rec := range records {
		r, err := adapters.MapStoreArchiveRecordToDomain(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *fsArchive) putIndex(ctx context.Context, p domain.Period, data []byte, source string, fetchedAt time.Time) error {
	rows := 0
	if _, body, err := decodeCSV(data); err == nil {
		rows = len(body)
	}
	if source == "" {
		source = "unknown"
	}
	sum := sha256.Sum256(data)
	return a.index.Put(ctx, adapters.MapDomainArchiveRecordToStore(domain.ArchiveRecord{
		Period:    p,
		Location:  a.path(p),
		Checksum:  hex.EncodeToString(sum[:]),
		Rows:      rows,
		Source:    source,
		FetchedAt: fetchedAt.UTC(),
	}))
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCSV(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return []string{}, [][]string{}, nil
	}
	return records[0], records[1:], nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/rs/zerolog"
)

// FileDrop reads hand-exported reports named royalties_YYYYMM.csv from a directory
type FileDrop struct {
	dir string
	now func() time.Time
}

func NewFileDrop(dir string) *FileDrop {
	return &FileDrop{dir: dir, now: time.Now}
}

func (f *FileDrop) Name() string {
	return "filedrop"
}

func (f *FileDrop) Fetch(ctx context.Context, p domain.Period) (domain.RawReport, error) {
	path := filepath.Join(f.dir, fmt.Sprintf("royalties_%s.csv", p.Compact()))
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("reading dropped report")

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.RawReport{}, domain.NewSourceUnavailableError(fmt.Sprintf("no report dropped at %s yet", path), err)
	}
	if err != nil {
		return domain.RawReport{}, domain.NewSourceUnavailableError("open dropped report", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return domain.RawReport{}, domain.NewSchemaError(fmt.Sprintf("dropped report %s is not valid CSV", path), err)
	}
	if len(records) == 0 {
		return domain.RawReport{Period: p, FetchedAt: f.now(), Source: f.Name()}, nil
	}

	return domain.RawReport{
		Period:    p,
		Header:    records[0],
		Rows:      records[1:],
		FetchedAt: f.now(),
		Source:    f.Name(),
	}, nil
}

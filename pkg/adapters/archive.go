package adapters

import (
	"github.com/de-tools/royalty-ledger/pkg/models/api"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/models/store"
)

func MapStoreArchiveRecordToDomain(rec store.ArchiveRecord) (domain.ArchiveRecord, error) {
	p, err := domain.ParsePeriod(rec.Period)
	if err != nil {
		return domain.ArchiveRecord{}, err
	}
	return domain.ArchiveRecord{
		Period:    p,
		Location:  rec.Location,
		Checksum:  rec.Checksum,
		Rows:      rec.Rows,
		Source:    rec.Source,
		FetchedAt: rec.FetchedAt,
	}, nil
}

func MapDomainArchiveRecordToStore(rec domain.ArchiveRecord) store.ArchiveRecord {
	return store.ArchiveRecord{
		Period:    rec.Period.Key(),
		Location:  rec.Location,
		Checksum:  rec.Checksum,
		Rows:      rec.Rows,
		Source:    rec.Source,
		FetchedAt: rec.FetchedAt,
	}
}

func MapArchiveRecordDomainToApi(rec domain.ArchiveRecord) api.ArchiveRecord {
	return api.ArchiveRecord{
		Period:    rec.Period.Key(),
		Location:  rec.Location,
		Checksum:  rec.Checksum,
		Rows:      rec.Rows,
		Source:    rec.Source,
		FetchedAt: rec.FetchedAt,
	}
}

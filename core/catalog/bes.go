package catalog

import (
	"context"

	"github.com/opendap/olfs/core/bes"
)

// Infoer is satisfied by *bes.API.
type Infoer interface {
	ShowInfo(ctx context.Context, path string) (*bes.Dataset, error)
}

// BES asks the backend with show info. Everything the backend reports is
// accessible.
type BES struct {
	api Infoer
}

func NewBES(api Infoer) *BES {
	return &BES{api: api}
}

func (b *BES) Info(ctx context.Context, p string) (DataSource, error) {
	p = Clean(p)
	ds := DataSource{Name: p}
	info, err := b.api.ShowInfo(ctx, p)
	if err != nil {
		if bes.IsNotFound(err) {
			return ds, nil
		}
		return ds, err
	}
	ds.Exists = true
	ds.Accessible = true
	ds.Collection = info.Collection
	ds.Dataset = info.Data
	ds.LastModified = info.LastModified
	ds.Size = info.Size
	return ds, nil
}


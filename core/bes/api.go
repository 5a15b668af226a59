package bes

import (
	"context"
	"io"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/opendap/olfs/core/fault"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Executor runs command scripts. Implemented by *Client.
type Executor interface {
	Execute(ctx context.Context, script Script, sink io.Writer) error
	Show(ctx context.Context, script Script) (*xmlquery.Node, error)
}

var _ Executor = (*Client)(nil)

// API is the set of backend requests the gateway makes.
type API struct {
	exec Executor
	log  *zap.Logger
}

func NewAPI(exec Executor, log *zap.Logger) *API {
	return &API{exec: exec, log: log}
}

// GetProduct streams product for dataset constrained by ce to w.
func (a *API) GetProduct(ctx context.Context, product Product, dataset, ce string, w io.Writer) error {
	return a.exec.Execute(ctx, GetScript(product, dataset, ce), w)
}

// ShowVersion returns the version document, with the response element
// renamed to OPeNDAP-Version and made the root.
func (a *API) ShowVersion(ctx context.Context) ([]byte, error) {
	doc, err := a.exec.Show(ctx, Script{ShowVersion()})
	if err != nil {
		return nil, err
	}
	resp := xmlquery.FindOne(doc, "/*/response")
	if resp == nil {
		return nil, fault.New(fault.Connection, "Backend version reply has no response element.")
	}
	resp.Data = "OPeNDAP-Version"
	return []byte(xmlHeader + resp.OutputXML(true)), nil
}

// ShowInfo returns the dataset description for path.
func (a *API) ShowInfo(ctx context.Context, path string) (*Dataset, error) {
	return a.showDataset(ctx, ShowInfo(path), path)
}

// ShowCatalog returns the catalog node for path with its children.
func (a *API) ShowCatalog(ctx context.Context, path string) (*Dataset, error) {
	return a.showDataset(ctx, ShowCatalog(path), path)
}

func (a *API) showDataset(ctx context.Context, cmd string, path string) (*Dataset, error) {
	doc, err := a.exec.Show(ctx, Script{cmd})
	if err != nil {
		return nil, err
	}
	top := xmlquery.FindOne(doc, "/*/response/dataset")
	ds, err := ParseDataset(top)
	if err != nil {
		a.log.Warn("Unexpected BES dataset reply", zap.String("cmd", cmd), zap.Error(err))
		return nil, fault.Wrap(fault.Connection, err, "Backend server sent unexpected reply.")
	}
	if !samePath(ds.Name, path) {
		a.log.Warn("BES returned wrong dataset", zap.String("requested", path), zap.String("returned", ds.Name))
		return nil, fault.New(fault.Backend, "Backend server returned the wrong dataset. Requested: %s Returned: %s", path, ds.Name)
	}
	return ds, nil
}

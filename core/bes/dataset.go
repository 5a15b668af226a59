package bes

import (
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/pkg/errors"
)

const lastModifiedLayout = "2006-01-02 15:04:05"

// Dataset is a dataset element of show info and show catalog replies.
type Dataset struct {
	Name         string
	Size         int64
	LastModified time.Time
	// Collection is set for catalog nodes: directories and the like.
	Collection bool
	// Data is set when the backend can build data products for the dataset.
	Data     bool
	Children []*Dataset

	node *xmlquery.Node
}

// ParseDataset parses dataset element n and its child datasets.
func ParseDataset(n *xmlquery.Node) (*Dataset, error) {
	if n == nil || n.Data != "dataset" {
		return nil, errors.New("dataset element expected")
	}
	d := &Dataset{
		Name:       childText(n, "name"),
		Collection: strings.EqualFold(n.SelectAttr("thredds_collection"), "true"),
		Data:       strings.EqualFold(n.SelectAttr("isData"), "true"),
		node:       n,
	}
	if size := childText(n, "size"); size != "" {
		var err error
		d.Size, err = strconv.ParseInt(size, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "dataset %q size", d.Name)
		}
	}
	if lm := n.SelectElement("lastmodified"); lm != nil {
		var err error
		d.LastModified, err = time.Parse(lastModifiedLayout, childText(lm, "date")+" "+childText(lm, "time"))
		if err != nil {
			return nil, errors.Wrapf(err, "dataset %q last modified", d.Name)
		}
	}
	for _, child := range xmlquery.Find(n, "dataset") {
		cd, err := ParseDataset(child)
		if err != nil {
			return nil, err
		}
		d.Children = append(d.Children, cd)
	}
	return d, nil
}

// XML renders the dataset element as it was received.
func (d *Dataset) XML() string {
	return d.node.OutputXML(true)
}

// samePath compares catalog paths treating "/" as the root.
func samePath(a, b string) bool {
	norm := func(p string) string { return strings.Trim(p, "/") }
	return norm(a) == norm(b)
}

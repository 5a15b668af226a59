// Package ce synthesizes DAP2 constraint expressions from WCS style
// coverage requests: field selection, dimension subsets and scaling.
package ce

import (
	"strings"
)

// Coverage describes how a WCS coverage maps onto a backend dataset.
type Coverage struct {
	ID string `config:"id" validate:"required"`
	// Dataset is the backend dataset path.
	Dataset string  `config:"dataset" validate:"required"`
	Fields  []Field `config:"fields" validate:"required,min=1,dive"`
	// Coordinates in the order they are declared in the dataset. Index
	// subsets depend on it.
	Coordinates []Coordinate `config:"coordinates" validate:"dive"`
}

// Field is a coverage range field backed by a grid array.
type Field struct {
	Name  string `config:"name" validate:"required" xml:"name,attr"`
	Array string `config:"array" xml:"array,attr,omitempty"`
}

func (f Field) ArrayName() string {
	if f.Array == "" {
		return f.Name
	}
	return f.Array
}

// Coordinate is a domain coordinate. DapName is the map vector name used in
// value constraints, Name by default.
type Coordinate struct {
	Name    string `config:"name" validate:"required" xml:"name,attr"`
	DapName string `config:"dap-name" xml:"dapName,attr,omitempty"`
}

func (c Coordinate) dapName() string {
	if c.DapName == "" {
		return c.Name
	}
	return c.DapName
}

func (c *Coverage) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (c *Coverage) Coordinate(name string) (Coordinate, bool) {
	for _, dc := range c.Coordinates {
		if dc.Name == name {
			return dc, true
		}
	}
	return Coordinate{}, false
}

func (c *Coverage) fieldNames() string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

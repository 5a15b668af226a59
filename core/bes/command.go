package bes

import (
	"strings"
)

// Product is a response kind the backend can build for a defined dataset.
type Product string

const (
	DDS      Product = "dds"
	DAS      Product = "das"
	DODS     Product = "dods"
	DDX      Product = "ddx"
	ASCII    Product = "ascii"
	InfoPage Product = "info_page"
	HTMLForm Product = "html_form"
	NetCDF   Product = "netcdf"
	GeoTIFF  Product = "geotiff"
	JPEG2000 Product = "jpeg2000"
)

// DefinitionName is the definition every get script works on.
const DefinitionName = "d1"

// Script is an ordered list of command lines. Each line is sent as one
// message and answered by one reply.
type Script []string

func (s Script) String() string {
	return strings.Join(s, "\n")
}

// SetContainer names a container after the dataset it points to.
func SetContainer(name, dataset string) string {
	return "set container in catalog values " + name + ", " + dataset + ";"
}

// Define defines def over the container. Blank ce means no constraint.
func Define(def, dataset, ce string) string {
	if strings.TrimSpace(ce) == "" {
		return "define " + def + " as " + dataset + ";"
	}
	return "define " + def + " as " + dataset + " with " + dataset +
		`.constraint="` + quoteCE(ce) + `";`
}

// quoteCE keeps a double quote in ce from closing the constraint literal.
// The backend percent decodes constraints.
func quoteCE(ce string) string {
	return strings.ReplaceAll(ce, `"`, "%22")
}

func Get(product Product, def string) string {
	return "get " + string(product) + " for " + def + ";"
}

func Show(what string) string {
	return "show " + what + ";"
}

func ShowVersion() string { return Show("version") }

func ShowInfo(path string) string { return Show(`info for "` + path + `"`) }

func ShowCatalog(path string) string { return Show(`catalog for "` + path + `"`) }

// GetScript builds the three command script fetching product for dataset.
func GetScript(product Product, dataset, ce string) Script {
	return Script{
		SetContainer(dataset, dataset),
		Define(DefinitionName, dataset, ce),
		Get(product, DefinitionName),
	}
}

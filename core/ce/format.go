package ce

import (
	"strings"

	"github.com/opendap/olfs/core/bes"
	"github.com/opendap/olfs/core/fault"
)

// Format is a coverage response encoding.
type Format struct {
	Name      string
	MIME      string
	Product   bes.Product
	Extension string
}

var formats = []Format{
	{"application/x-netcdf", "application/x-netcdf", bes.NetCDF, ".nc"},
	{"image/tiff", "image/tiff", bes.GeoTIFF, ".tiff"},
	{"image/geotiff", "image/geotiff", bes.GeoTIFF, ".tiff"},
	{"image/jp2", "image/jp2", bes.JPEG2000, ".jp2"},
	{"application/octet-stream", "application/octet-stream", bes.DODS, ".dods"},
}

// DefaultFormat is used when the request names none.
var DefaultFormat = formats[0]

// LookupFormat resolves requested format name. Any name containing "netcdf"
// means NetCDF.
func LookupFormat(name string) (Format, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultFormat, nil
	}
	if strings.Contains(strings.ToLower(name), "netcdf") {
		return DefaultFormat, nil
	}
	for _, f := range formats {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return Format{}, fault.InvalidParam("format", "Unrecognized response format: %s. Supported formats are: %s",
		scrub(name), strings.Join(FormatNames(), ", "))
}

// FormatNames lists accepted format names.
func FormatNames() []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.Name
	}
	return names
}

// ContentDisposition names the download after the coverage.
func (f Format) ContentDisposition(coverageID string) string {
	return `attachment; filename="` + scrub(coverageID) + f.Extension + `"`
}

// scrub keeps only characters safe for file names and messages.
func scrub(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("._-/+:", r):
			return r
		}
		return '_'
	}, s)
}

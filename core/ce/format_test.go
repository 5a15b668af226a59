package ce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendap/olfs/core/bes"
	"github.com/opendap/olfs/core/fault"
)

func TestLookupFormat(t *testing.T) {
	tests := []struct {
		in      string
		mime    string
		product bes.Product
	}{
		{"", "application/x-netcdf", bes.NetCDF},
		{"application/x-netcdf", "application/x-netcdf", bes.NetCDF},
		{"netcdf-4", "application/x-netcdf", bes.NetCDF},
		{"image/tiff", "image/tiff", bes.GeoTIFF},
		{"IMAGE/GEOTIFF", "image/geotiff", bes.GeoTIFF},
		{"image/jp2", "image/jp2", bes.JPEG2000},
		{"application/octet-stream", "application/octet-stream", bes.DODS},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := LookupFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, f.MIME)
			assert.Equal(t, tt.product, f.Product)
		})
	}
}

func TestLookupFormatUnknown(t *testing.T) {
	_, err := LookupFormat("text/<script>")
	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, "format", f.Locator)
	assert.NotContains(t, f.Msg, "<script>")
	assert.Contains(t, f.Msg, "image/tiff")
	assert.Contains(t, f.Msg, "application/x-netcdf")
}

func TestContentDisposition(t *testing.T) {
	f, err := LookupFormat("image/tiff")
	require.NoError(t, err)
	assert.Equal(t, `attachment; filename="sst_monthly.tiff"`, f.ContentDisposition("sst_monthly"))
}

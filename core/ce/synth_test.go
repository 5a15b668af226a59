package ce

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendap/olfs/core/fault"
)

func testCoverage() *Coverage {
	return &Coverage{
		ID:      "sst_monthly",
		Dataset: "data/nc/sst.mnmean.nc",
		Fields: []Field{
			{Name: "sst"},
			{Name: "ice", Array: "ice_fraction"},
		},
		Coordinates: []Coordinate{
			{Name: "time"},
			{Name: "lat"},
			{Name: "lon", DapName: "longitude"},
		},
	}
}

func mustSubsets(t *testing.T, ss ...string) []Subset {
	res, err := ParseSubsets(ss)
	require.NoError(t, err)
	return res
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		subsets []string
		scale   string
		want    string
	}{
		{
			name: "all fields no subsets",
			want: "sst,ice_fraction",
		},
		{
			name:   "selected field",
			fields: []string{"ice"},
			want:   "ice_fraction",
		},
		{
			name:    "index subset enumerates coordinates",
			fields:  []string{"sst"},
			subsets: []string{"lat[2:5]"},
			want:    "sst[*][2:5][*]",
		},
		{
			name:    "index subsets follow declared order",
			fields:  []string{"sst"},
			subsets: []string{"lon[7]", "time[0:1]"},
			want:    "sst[0:1][*][7]",
		},
		{
			name:    "value subsets keep request order",
			fields:  []string{"sst"},
			subsets: []string{"lon(100,120)", "lat(10,20)"},
			want:    "grid(sst,100<=longitude<=120,10<=lat<=20)",
		},
		{
			name:    "value point",
			fields:  []string{"sst"},
			subsets: []string{"lat(15)"},
			want:    "grid(sst,15<=lat<=15)",
		},
		{
			name:    "grid clauses precede index clauses",
			subsets: []string{"lat(10,20)", "time[3]"},
			want:    "grid(sst,10<=lat<=20),grid(ice_fraction,10<=lat<=20),sst[3][*][*],ice_fraction[3][*][*]",
		},
		{
			name:    "scale wraps grid clauses only",
			fields:  []string{"sst"},
			subsets: []string{"lat(10,20)", "time[3]"},
			scale:   "lat(100),lon(200)",
			want:    "scale_grid(grid(sst,10<=lat<=20),100,200),sst[3][*][*]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, err := ParseScaleSize(tt.scale)
			require.NoError(t, err)
			got, err := Build(testCoverage(), tt.fields, mustSubsets(t, tt.subsets...), scale)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSynthesizeEncodesOnce(t *testing.T) {
	subsets := mustSubsets(t, "lat(10,20)", "time[3]")
	raw, err := Build(testCoverage(), []string{"sst"}, subsets, nil)
	require.NoError(t, err)
	enc, err := Synthesize(testCoverage(), []string{"sst"}, subsets, nil)
	require.NoError(t, err)

	assert.NotContains(t, enc, "<")
	assert.NotContains(t, enc, "[")
	assert.NotContains(t, enc, "%25")
	dec, err := url.QueryUnescape(enc)
	require.NoError(t, err)
	assert.Equal(t, raw, dec)
}

func TestBuildUnknownDimension(t *testing.T) {
	_, err := Build(testCoverage(), nil, mustSubsets(t, "depth(0,10)"), nil)
	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.InvalidParameter, f.Kind)
	assert.Equal(t, DimensionLocator, f.Locator)
	assert.Equal(t, "Bad subsetting request.\n"+
		"A subset was requested for dimension 'depth' and there is no coordinate dimension of that name in the Coverage 'sst_monthly'\n"+
		"Valid coordinate dimension names for 'sst_monthly' are: \n"+
		"    time\n"+
		"    lat\n"+
		"    lon\n", f.Msg)
}

func TestBuildRejects(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		subsets []string
		scale   string
		locator string
	}{
		{name: "unknown field", fields: []string{"chlorophyll"}, locator: "rangeSubset"},
		{name: "duplicate dimension", subsets: []string{"lat(1,2)", "lat[3]"}, locator: DimensionLocator},
		{name: "unknown scale axis", scale: "depth(10)", locator: DimensionLocator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, err := ParseScaleSize(tt.scale)
			require.NoError(t, err)
			_, err = Synthesize(testCoverage(), tt.fields, mustSubsets(t, tt.subsets...), scale)
			require.Error(t, err)
			f, ok := fault.As(err)
			require.True(t, ok)
			assert.Equal(t, fault.InvalidParameter, f.Kind)
			assert.Equal(t, tt.locator, f.Locator)
		})
	}
}

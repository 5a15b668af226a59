package ce

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/opendap/olfs/core/fault"
)

// AxisSize is a target size along one axis.
type AxisSize struct {
	Axis string
	Size int
}

// Scale asks the backend to resample value subsets to the given sizes.
// Nil Scale leaves clauses unchanged.
type Scale struct {
	Sizes []AxisSize
}

var axisSizeRegexp = regexp.MustCompile(`^\s*([^\s(]+)\s*\(\s*(\d+)\s*\)\s*$`)

// ParseScaleSize parses "lat(100),lon(200)". Empty input is no scale.
func ParseScaleSize(s string) (*Scale, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	scale := &Scale{}
	for _, item := range splitTopLevel(s) {
		m := axisSizeRegexp.FindStringSubmatch(item)
		if m == nil {
			return nil, fault.InvalidParam("scaleSize", "Bad scale size %q. Expected axis(size).", item)
		}
		size, err := strconv.Atoi(m[2])
		if err != nil || size <= 0 {
			return nil, fault.InvalidParam("scaleSize", "Bad scale size %q: size must be positive.", item)
		}
		scale.Sizes = append(scale.Sizes, AxisSize{Axis: m[1], Size: size})
	}
	return scale, nil
}

// Apply wraps clause into the scale_grid server function.
func (s *Scale) Apply(clause string) string {
	if s == nil || len(s.Sizes) == 0 {
		return clause
	}
	var sb strings.Builder
	sb.WriteString("scale_grid(")
	sb.WriteString(clause)
	for _, as := range s.Sizes {
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(as.Size))
	}
	sb.WriteByte(')')
	return sb.String()
}

// splitTopLevel splits on commas outside parentheses.
func splitTopLevel(s string) []string {
	var (
		res   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				res = append(res, s[start:i])
				start = i + 1
			}
		}
	}
	return append(res, s[start:])
}

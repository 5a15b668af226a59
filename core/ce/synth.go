package ce

import (
	"net/url"
	"strings"

	"github.com/opendap/olfs/core/fault"
)

// DimensionLocator is the parameter reported for bad dimension names.
const DimensionLocator = "wcs:dimension"

// Build returns the constraint expression selecting fields of cov
// restricted by subsets. Empty fields means all fields in declared order.
//
// Value subsets of a field become one grid(array,...) clause with the
// conditions in request order. Index subsets become one array[..][..]
// clause listing every coordinate in declared order, [*] where the request
// has none. All grid clauses, each passed through scale, precede all array
// clauses.
func Build(cov *Coverage, fields []string, subsets []Subset, scale *Scale) (string, error) {
	byDim, err := checkSubsets(cov, subsets)
	if err != nil {
		return "", err
	}
	if err := checkScale(cov, scale); err != nil {
		return "", err
	}
	if len(fields) == 0 {
		for _, f := range cov.Fields {
			fields = append(fields, f.Name)
		}
	}
	var gridClauses, arrayClauses []string
	for _, name := range fields {
		field, ok := cov.Field(name)
		if !ok {
			return "", fault.InvalidParam("rangeSubset",
				"Coverage '%s' has no field '%s'. Valid fields are: %s", cov.ID, name, cov.fieldNames())
		}
		array := field.ArrayName()
		if len(subsets) == 0 {
			arrayClauses = append(arrayClauses, array)
			continue
		}
		var conditions []string
		hasIndex := false
		for _, s := range subsets {
			if s.Kind == ValueSubset {
				dc, _ := cov.Coordinate(s.Dimension)
				conditions = append(conditions, s.valueClause(dc.dapName()))
			} else {
				hasIndex = true
			}
		}
		if len(conditions) > 0 {
			gridClauses = append(gridClauses, "grid("+array+","+strings.Join(conditions, ",")+")")
		}
		if hasIndex {
			var sb strings.Builder
			sb.WriteString(array)
			for _, dc := range cov.Coordinates {
				if s, ok := byDim[dc.Name]; ok && s.Kind == IndexSubset {
					sb.WriteString(s.indexClause())
				} else {
					sb.WriteString("[*]")
				}
			}
			arrayClauses = append(arrayClauses, sb.String())
		}
	}
	clauses := make([]string, 0, len(gridClauses)+len(arrayClauses))
	for _, c := range gridClauses {
		clauses = append(clauses, scale.Apply(c))
	}
	clauses = append(clauses, arrayClauses...)
	return strings.Join(clauses, ","), nil
}

// Synthesize is Build percent encoded once for use in a URL query.
func Synthesize(cov *Coverage, fields []string, subsets []Subset, scale *Scale) (string, error) {
	expr, err := Build(cov, fields, subsets, scale)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(expr), nil
}

func checkSubsets(cov *Coverage, subsets []Subset) (map[string]Subset, error) {
	byDim := make(map[string]Subset, len(subsets))
	for _, s := range subsets {
		if _, ok := cov.Coordinate(s.Dimension); !ok {
			return nil, badDimension(cov, "A subset was requested for dimension '"+s.Dimension+"'")
		}
		if _, dup := byDim[s.Dimension]; dup {
			return nil, fault.InvalidParam(DimensionLocator,
				"Bad subsetting request. Dimension '%s' is subset more than once.", s.Dimension)
		}
		byDim[s.Dimension] = s
	}
	return byDim, nil
}

func checkScale(cov *Coverage, scale *Scale) error {
	if scale == nil {
		return nil
	}
	for _, as := range scale.Sizes {
		if _, ok := cov.Coordinate(as.Axis); !ok {
			return badDimension(cov, "A scale size was requested for axis '"+as.Axis+"'")
		}
	}
	return nil
}

func badDimension(cov *Coverage, what string) error {
	var sb strings.Builder
	sb.WriteString("Bad subsetting request.\n")
	sb.WriteString(what)
	sb.WriteString(" and there is no coordinate dimension of that name in the Coverage '")
	sb.WriteString(cov.ID)
	sb.WriteString("'\nValid coordinate dimension names for '")
	sb.WriteString(cov.ID)
	sb.WriteString("' are: ")
	for _, dc := range cov.Coordinates {
		sb.WriteString("\n    ")
		sb.WriteString(dc.Name)
	}
	sb.WriteString("\n")
	return fault.InvalidParam(DimensionLocator, "%s", sb.String())
}

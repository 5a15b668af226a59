package ce

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/opendap/olfs/core/fault"
)

type SubsetKind int

const (
	// ValueSubset bounds are domain coordinate values.
	ValueSubset SubsetKind = iota
	// IndexSubset bounds are array indices.
	IndexSubset
)

// Subset restricts one dimension. High is empty for a single point.
type Subset struct {
	Dimension string
	Kind      SubsetKind
	Low       string
	High      string
}

var (
	valueSubsetRegexp = regexp.MustCompile(`^\s*([^\s(\[]+)\s*\(\s*([^,()]+?)\s*(?:,\s*([^,()]+?)\s*)?\)\s*$`)
	indexSubsetRegexp = regexp.MustCompile(`^\s*([^\s(\[]+)\s*\[\s*(\d+)\s*(?::\s*(\d+)\s*)?\]\s*$`)
)

// ParseSubset parses "lat(10,20)" and "lat(15)" as value subsets and
// "lat[2:5]" and "lat[3]" as index subsets.
func ParseSubset(s string) (Subset, error) {
	if m := indexSubsetRegexp.FindStringSubmatch(s); m != nil {
		sub := Subset{Dimension: m[1], Kind: IndexSubset, Low: m[2], High: m[3]}
		if sub.High != "" {
			low, _ := strconv.ParseUint(sub.Low, 10, 64)
			high, _ := strconv.ParseUint(sub.High, 10, 64)
			if low > high {
				return Subset{}, fault.InvalidParam("subset", "Bad subset %q: low index is greater than high index.", s)
			}
		}
		return sub, nil
	}
	if m := valueSubsetRegexp.FindStringSubmatch(s); m != nil {
		return Subset{Dimension: m[1], Kind: ValueSubset, Low: m[2], High: m[3]}, nil
	}
	return Subset{}, fault.InvalidParam("subset",
		"Bad subset %q. Expected dimension(low,high), dimension(value), dimension[low:high] or dimension[index].", s)
}

func (s Subset) IsPoint() bool { return s.High == "" }

// valueClause renders "low<=dim<=high".
func (s Subset) valueClause(dim string) string {
	high := s.High
	if s.IsPoint() {
		high = s.Low
	}
	return s.Low + "<=" + dim + "<=" + high
}

// indexClause renders "[low:high]" or "[index]".
func (s Subset) indexClause() string {
	if s.IsPoint() {
		return "[" + s.Low + "]"
	}
	return "[" + s.Low + ":" + s.High + "]"
}

func (s Subset) String() string {
	if s.Kind == IndexSubset {
		return s.Dimension + s.indexClause()
	}
	if s.IsPoint() {
		return s.Dimension + "(" + s.Low + ")"
	}
	return s.Dimension + "(" + s.Low + "," + s.High + ")"
}

// ParseSubsets parses every subset parameter value.
func ParseSubsets(values []string) ([]Subset, error) {
	var res []Subset
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		s, err := ParseSubset(v)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

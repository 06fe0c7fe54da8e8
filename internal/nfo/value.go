package nfo

import (
	"strings"

	"github.com/spf13/cast"
)

// value is a single NFO leaf node. The format allows every leaf field to
// appear as a bare scalar, as a single node carrying a type/aspect attribute,
// or as a list mixing both; decoding each field into a []value makes all
// three shapes uniform before normalization.
type value struct {
	Type   string `xml:"type,attr"`
	Aspect string `xml:"aspect,attr"`
	Text   string `xml:",chardata"`
}

func (v value) trimmed() string {
	return strings.TrimSpace(v.Text)
}

// scalar normalizes a scalar field: the first non-empty entry wins.
func scalar(vs []value) *string {
	for _, v := range vs {
		if s := v.trimmed(); s != "" {
			return &s
		}
	}
	return nil
}

// list normalizes a repeatable field, preserving declaration order.
func list(vs []value) []string {
	var out []string
	for _, v := range vs {
		if s := v.trimmed(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// scalarInt parses a scalar field as an integer, nil when absent or malformed.
func scalarInt(vs []value) *int {
	s := scalar(vs)
	if s == nil {
		return nil
	}
	n, err := cast.ToIntE(*s)
	if err != nil {
		return nil
	}
	return &n
}

func scalarInt64(vs []value) *int64 {
	s := scalar(vs)
	if s == nil {
		return nil
	}
	n, err := cast.ToInt64E(*s)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloat(s string) *float64 {
	f, err := cast.ToFloat64E(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &f
}

func parseInt64(s string) *int64 {
	n, err := cast.ToInt64E(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

// Package rank classifies values by the narrowest storage class that can
// hold them losslessly.
package rank

import (
	"math"
	"strconv"
	"unicode/utf8"

	"schematune/internal/engine/value"
)

// Rank is an ordinal storage width. Comparing two ranks answers whether a
// declared type is wider than a value needs.
type Rank int

const (
	Bool Rank = iota
	UInt8
	UInt32
	Double
	Text8
	Text16
	Text32

	// Specified marks a declared type outside the generic width ladder
	// (datetime, enum, json, ...). It is never narrowed.
	Specified Rank = 99
)

const (
	maxUInt8      = 255
	maxUInt32     = math.MaxUint32
	maxExactFloat = 1 << 53
	maxText8Runes = 255
	maxText16Len  = 65535
)

var names = map[Rank]string{
	Bool:      "bool",
	UInt8:     "uint8",
	UInt32:    "uint32",
	Double:    "double",
	Text8:     "text8",
	Text16:    "text16",
	Text32:    "text32",
	Specified: "specified",
}

// All returns every generic rank in ascending order. A dialect must map each
// of them to a concrete type.
func All() []Rank {
	return []Rank{Bool, UInt8, UInt32, Double, Text8, Text16, Text32}
}

func (r Rank) String() string {
	if name, ok := names[r]; ok {
		return name
	}
	return "rank(" + strconv.Itoa(int(r)) + ")"
}

// Generic reports whether r sits on the width ladder.
func (r Rank) Generic() bool {
	return r >= Bool && r <= Text32
}

// Of returns the narrowest rank that represents v without loss. It looks at
// the value only, never at a declared type.
func Of(v any) Rank {
	switch v.(type) {
	case nil, bool:
		return Bool
	}
	s, ok := value.Text(v)
	if !ok {
		return Bool
	}
	return OfText(s)
}

// OfText ranks a value by its textual form.
func OfText(s string) Rank {
	if s == "0" || s == "1" {
		return Bool
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		if strconv.FormatUint(n, 10) == s {
			switch {
			case n <= maxUInt8:
				return UInt8
			case n <= maxUInt32:
				return UInt32
			case n <= maxExactFloat:
				return Double
			}
		}
	} else if isCanonicalNumber(s) {
		return Double
	}
	switch {
	case utf8.RuneCountInString(s) <= maxText8Runes:
		return Text8
	case len(s) <= maxText16Len:
		return Text16
	default:
		return Text32
	}
}

// isCanonicalNumber accepts decimals that survive a round trip through a
// double unchanged, so "1.5" and "-3" qualify but "1.50" and "1e3" do not.
func isCanonicalNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return false
	}
	return strconv.FormatFloat(f, 'f', -1, 64) == s
}

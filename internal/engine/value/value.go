// Package value normalizes scalar field and column values into the textual
// form the optimizer reasons about, and defines storage-level equality used
// when diffing a column against its shadow copy.
package value

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DateTimeLayout is the textual form used for time.Time values.
const DateTimeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{
	DateTimeLayout,
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
}

// Text returns the canonical textual form of v. The second result is false
// for NULL.
func Text(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		if x == nil {
			return "", false
		}
		return string(x), true
	case bool:
		if x {
			return "1", true
		}
		return "0", true
	case int:
		return strconv.FormatInt(int64(x), 10), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return formatFloat(float64(x), 32), true
	case float64:
		return formatFloat(x, 64), true
	case time.Time:
		return x.Format(DateTimeLayout), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

func formatFloat(f float64, bits int) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// Equal reports whether a and b hold the same stored value. NULL equals only
// NULL. A time.Time equals a string that parses to the same instant, which is
// how a datetime column compares against its textual source.
func Equal(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	switch {
	case aok && bok:
		return at.Equal(bt)
	case aok:
		return equalTime(at, b)
	case bok:
		return equalTime(bt, a)
	}

	as, aNotNull := Text(a)
	bs, bNotNull := Text(b)
	if !aNotNull || !bNotNull {
		return aNotNull == bNotNull
	}
	return as == bs
}

func equalTime(t time.Time, other any) bool {
	s, ok := Text(other)
	if !ok {
		return false
	}
	parsed, ok := ParseTime(s)
	if !ok {
		return false
	}
	return parsed.Equal(t)
}

// ParseTime parses s with the datetime layouts a SQL column round trip can produce.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

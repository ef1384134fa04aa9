package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only accepted textual form of a Date.
const DateLayout = "2006-01-02"

// Value is a sealed interface representing a cell value in a Row.
// Only Null, Text, Int, Decimal, Bool and Date implement it.
//
// String returns the canonical text form used by "=" and LIKE.
// Number returns the numeric form used by ordering comparisons; ok is false
// when the value has no numeric reading (the evaluator treats that as NaN).
type Value interface {
	value() // Sealed - only these types implement it
	String() string
	Number() (float64, bool)
}

// Null represents an explicit NULL cell.
type Null struct{}

func (Null) value() {}

// String returns "null".
func (Null) String() string { return "null" }

// Number reports no numeric reading.
func (Null) Number() (float64, bool) { return math.NaN(), false }

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Text represents a text or varchar value.
type Text string

func (Text) value() {}

func (t Text) String() string { return string(t) }

// Number parses the trimmed text as a float. Empty text has no numeric reading.
func (t Text) Number() (float64, bool) {
	s := strings.TrimSpace(string(t))
	if s == "" {
		return math.NaN(), false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return math.NaN(), false
	}
	return f, true
}

// MarshalJSON implements json.Marshaler for Text.
func (t Text) MarshalJSON() ([]byte, error) { return json.Marshal(string(t)) }

// Int represents an integer value.
type Int int64

func (Int) value() {}

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (i Int) Number() (float64, bool) { return float64(i), true }

// MarshalJSON implements json.Marshaler for Int.
func (i Int) MarshalJSON() ([]byte, error) { return json.Marshal(int64(i)) }

// Decimal represents a decimal value.
type Decimal float64

func (Decimal) value() {}

// String formats the shortest representation that round-trips, so 2.0
// renders as "2" and 2.50 as "2.5".
func (d Decimal) String() string { return formatNumber(float64(d)) }

func (d Decimal) Number() (float64, bool) {
	f := float64(d)
	if math.IsNaN(f) {
		return f, false
	}
	return f, true
}

// MarshalJSON implements json.Marshaler for Decimal.
func (d Decimal) MarshalJSON() ([]byte, error) {
	f := float64(d)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("decimal %v has no JSON form", f)
	}
	return []byte(formatNumber(f)), nil
}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Number maps true to 1 and false to 0.
func (b Bool) Number() (float64, bool) {
	if b {
		return 1, true
	}
	return 0, true
}

// MarshalJSON implements json.Marshaler for Bool.
func (b Bool) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }

// Date represents a calendar date without time of day or zone.
// It is comparable with == so joins can use strict equality.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (Date) value() {}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Number reports no numeric reading; dates order as text.
func (Date) Number() (float64, bool) { return math.NaN(), false }

// MarshalJSON implements json.Marshaler for Date.
func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Identical reports strict equality of two raw values.
//
// Values of the same kind compare by value. Int and Decimal compare
// numerically with each other. Null and absent (nil) values are never
// identical to anything, including themselves.
func Identical(a, b Value) bool {
	if a == nil || b == nil {
		return false
	}
	switch av := a.(type) {
	case Null:
		return false
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Decimal:
			return float64(av) == float64(bv)
		}
		return false
	case Decimal:
		switch bv := b.(type) {
		case Int:
			return float64(av) == float64(bv)
		case Decimal:
			return av == bv
		}
		return false
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Date:
		bv, ok := b.(Date)
		return ok && av == bv
	default:
		return false
	}
}

// FromGo converts a decoded Go scalar (from YAML, JSON, CUE or database/sql)
// into a Value.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return Text(val), nil
	case []byte:
		return Text(string(val)), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return Decimal(val), nil
	case float64:
		return Decimal(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Decimal(f), nil
	case time.Time:
		return DateOf(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// Conform coerces v to the representation expected by a column type.
// Null passes through unchanged; nullability is checked by schema validation.
func Conform(v Value, typ ColumnType) (Value, error) {
	if _, ok := v.(Null); ok || v == nil {
		return Null{}, nil
	}

	switch typ {
	case TypeInteger:
		switch val := v.(type) {
		case Int:
			return val, nil
		case Decimal:
			if f := float64(val); f == math.Trunc(f) && !math.IsInf(f, 0) {
				return Int(int64(f)), nil
			}
		}
	case TypeDecimal:
		switch val := v.(type) {
		case Int:
			return Decimal(float64(val)), nil
		case Decimal:
			return val, nil
		}
	case TypeBoolean:
		switch val := v.(type) {
		case Bool:
			return val, nil
		case Int:
			if val == 0 || val == 1 {
				return Bool(val == 1), nil
			}
		}
	case TypeDate:
		switch val := v.(type) {
		case Date:
			return val, nil
		case Text:
			return ParseDate(string(val))
		}
	case TypeText, TypeVarchar:
		if t, ok := v.(Text); ok {
			return t, nil
		}
	default:
		return nil, fmt.Errorf("unknown column type %q", typ)
	}

	return nil, fmt.Errorf("value %s (%s) does not fit column type %s", v, KindOf(v), typ)
}

// KindOf returns a short lower-case name for a value's dynamic type.
func KindOf(v Value) string {
	switch v.(type) {
	case nil:
		return "absent"
	case Null:
		return "null"
	case Text:
		return "text"
	case Int:
		return "integer"
	case Decimal:
		return "decimal"
	case Bool:
		return "boolean"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// formatNumber renders a float the way ECMAScript Number#toString does for
// the magnitudes lesson data uses.
func formatNumber(f float64) string {
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Value is a sealed interface representing the scalar types a row can hold.
// Only Null, Text, Int, and Decimal implement this.
// NO binary floats - decimals are exact (apd) so aggregation never drifts.
type Value interface {
	value() // Sealed - only these types implement it
	String() string
}

// Null represents an absent (SQL NULL) value.
type Null struct{}

func (Null) value() {}

// String returns the empty string; Null has no textual form of its own.
func (Null) String() string { return "" }

// Text represents a string value.
type Text string

func (Text) value() {}

func (t Text) String() string { return string(t) }

// Int represents an integer value.
// Always int64.
type Int int64

func (Int) value() {}

func (n Int) String() string { return strconv.FormatInt(int64(n), 10) }

// Decimal represents an exact decimal value.
// The zero Decimal is 0.
type Decimal struct {
	d apd.Decimal
}

func (Decimal) value() {}

// String returns the plain (non-exponent) decimal form.
func (d Decimal) String() string { return d.d.Text('f') }

// Apd returns a copy of the underlying apd.Decimal.
func (d Decimal) Apd() *apd.Decimal {
	var out apd.Decimal
	out.Set(&d.d)
	return &out
}

// Empty is the empty-string sentinel used for "no value here".
const Empty = Text("")

// NewText creates a Text value.
func NewText(s string) Text {
	return Text(s)
}

// NewInt creates an Int value.
func NewInt(n int64) Int {
	return Int(n)
}

// NewDecimal creates a Decimal from an apd.Decimal (copied).
func NewDecimal(d *apd.Decimal) Decimal {
	var out Decimal
	out.d.Set(d)
	return out
}

// DecimalFromInt creates a Decimal holding n.
func DecimalFromInt(n int64) Decimal {
	var out Decimal
	out.d.SetInt64(n)
	return out
}

// ParseDecimal parses s as an exact decimal.
// Surrounding whitespace is not accepted; see ToDecimal.
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("invalid decimal %q: not a finite number", s)
	}
	return NewDecimal(d), nil
}

// MustDecimal parses s and panics on error. Intended for tests and constants.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// IsEmpty reports whether v is null or the empty string.
func IsEmpty(v Value) bool {
	if IsNull(v) {
		return true
	}
	t, ok := v.(Text)
	return ok && t == ""
}

// FromAny converts a Go value to a Value.
// Accepts Value, nil, string, []byte, bool (as Int 0/1), all int kinds,
// float32/float64 (shortest exact decimal form) and *apd.Decimal.
func FromAny(v any) (Value, error) {
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
		if val {
			return Int(1), nil
		}
		return Int(0), nil
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
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return ParseDecimal(strconv.FormatUint(val, 10))
		}
		return Int(int64(val)), nil
	case float32:
		return ParseDecimal(strconv.FormatFloat(float64(val), 'f', -1, 32))
	case float64:
		return ParseDecimal(strconv.FormatFloat(val, 'f', -1, 64))
	case *apd.Decimal:
		if val == nil {
			return Null{}, nil
		}
		return NewDecimal(val), nil
	default:
		return nil, fmt.Errorf("unsupported type for value: %T", v)
	}
}

// Stored converts v to the form a source keeps it in. It is FromAny,
// except that decimals (including floats) become their text form, so
// 1.5 and 1.50 are distinct values on every backend.
func Stored(v any) (Value, error) {
	val, err := FromAny(v)
	if err != nil {
		return nil, err
	}
	return Canonical(val), nil
}

// Canonical returns v with a Decimal replaced by its text form.
// Other kinds are returned unchanged.
func Canonical(v Value) Value {
	if d, ok := v.(Decimal); ok {
		return Text(d.String())
	}
	return v
}

// FromSQL converts a value scanned from database/sql into a Value.
// SQLite hands back int64, float64, string, []byte or nil.
func FromSQL(v any) (Value, error) {
	return FromAny(v)
}

// ToParam converts a Value to a Go native type for a SQL parameter.
// Decimals are bound as their text form so no binary float is stored.
func ToParam(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Text:
		return string(val)
	case Int:
		return int64(val)
	case Decimal:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}

// ToDecimal coerces v for summation: null and blank text are zero, Int and
// Decimal convert exactly, other text is trimmed and parsed as an exact
// decimal.
func ToDecimal(v Value) (Decimal, error) {
	switch val := v.(type) {
	case nil, Null:
		return Decimal{}, nil
	case Int:
		return DecimalFromInt(int64(val)), nil
	case Decimal:
		return val, nil
	case Text:
		s := strings.TrimSpace(string(val))
		if s == "" {
			return Decimal{}, nil
		}
		return ParseDecimal(s)
	default:
		return Decimal{}, fmt.Errorf("cannot convert %T to decimal", v)
	}
}

// sumContext is wide enough that realistic column totals never round.
var sumContext = apd.BaseContext.WithPrecision(200)

// Add returns a + b exactly. An error is returned if the result would round.
func Add(a, b Decimal) (Decimal, error) {
	var out Decimal
	cond, err := sumContext.Add(&out.d, &a.d, &b.d)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimal add: %w", err)
	}
	if cond.Inexact() {
		return Decimal{}, fmt.Errorf("decimal add: result of %s + %s exceeds %d digits", a, b, sumContext.Precision)
	}
	return out, nil
}

package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Key returns a canonical string identity for a tuple of values.
// Two tuples have the same Key exactly when they are element-wise Equal,
// so keys are safe to use for map-based grouping and deduplication.
//
// Encoding per element:
//   - Null    → "n"
//   - numbers → "d" + reduced decimal text (Int 15 and Decimal 15.00 collide on purpose)
//   - Text    → "s" + length + ":" + raw text (length prefix keeps separators unambiguous)
func Key(vals []Value) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte('|')
		}
		writeKey(&b, v)
	}
	return b.String()
}

func writeKey(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil, Null:
		b.WriteByte('n')
	case Int:
		b.WriteByte('d')
		b.WriteString(val.String())
	case Decimal:
		b.WriteByte('d')
		var reduced apd.Decimal
		reduced.Reduce(&val.d)
		if reduced.IsZero() {
			// -0 and 0 are the same key
			b.WriteString("0")
			return
		}
		b.WriteString(reduced.Text('f'))
	default:
		s := v.String()
		fmt.Fprintf(b, "s%d:", len(s))
		b.WriteString(s)
	}
}

// MarshalValue marshals a Value to JSON bytes.
// Decimals are written as JSON numbers using their exact text so no
// precision is lost on the way out.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case Int:
		return []byte(val.String()), nil
	case Decimal:
		return []byte(val.String()), nil
	case Text:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(string(val)); err != nil {
			return nil, err
		}
		// json.Encoder adds trailing newline, remove it
		return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// MarshalJSON implements json.Marshaler for Decimal.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return MarshalValue(d)
}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalTuple marshals a tuple as a JSON array.
func MarshalTuple(vals []Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("tuple[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

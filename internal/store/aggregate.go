package store

import (
	"fmt"
	"strconv"

	"github.com/roach88/rowsource/internal/value"
)

// decimalSum is the state of the decimal_sum SQL aggregate.
//
// SQLite's own SUM folds through binary floats. decimal_sum parses every
// value as an exact decimal instead, so results match the iteration
// backend digit for digit. NULL and "" count as zero.
type decimalSum struct {
	total value.Decimal
}

func newDecimalSum() *decimalSum {
	return &decimalSum{}
}

func (s *decimalSum) Step(v any) error {
	var d value.Decimal
	var err error
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		d = value.DecimalFromInt(x)
	case float64:
		d, err = value.ParseDecimal(strconv.FormatFloat(x, 'f', -1, 64))
	case string:
		d, err = value.ToDecimal(value.Text(x))
	case []byte:
		d, err = value.ToDecimal(value.Text(string(x)))
	default:
		return fmt.Errorf("decimal_sum: unsupported type %T", v)
	}
	if err != nil {
		return err
	}
	s.total, err = value.Add(s.total, d)
	return err
}

func (s *decimalSum) Done() (string, error) {
	return s.total.String(), nil
}

package value

import (
	"strings"
)

// kindRank orders values of different kinds for deterministic sorting:
// Null < numbers < Text.
func kindRank(v Value) int {
	switch v.(type) {
	case nil, Null:
		return 0
	case Int, Decimal:
		return 1
	default:
		return 2
	}
}

// Equal reports whether a and b hold the same value.
// Int and Decimal compare numerically; Text never equals a number.
func Equal(a, b Value) bool {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return false
	}
	switch ra {
	case 0:
		return true
	case 1:
		return compareNumbers(a, b) == 0
	default:
		return a.String() == b.String()
	}
}

// Compare returns -1, 0 or 1. Kinds are ordered Null < numbers < Text,
// mirroring SQLite's cross-type ordering.
func Compare(a, b Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		return 0
	case 1:
		return compareNumbers(a, b)
	default:
		return strings.Compare(a.String(), b.String())
	}
}

// compareNumbers compares two numeric values exactly.
func compareNumbers(a, b Value) int {
	if ia, ok := a.(Int); ok {
		if ib, ok := b.(Int); ok {
			switch {
			case ia < ib:
				return -1
			case ia > ib:
				return 1
			}
			return 0
		}
	}
	da, _ := ToDecimal(a)
	db, _ := ToDecimal(b)
	return da.d.Cmp(&db.d)
}

// CompareTuples compares two tuples element-wise; shorter tuples sort first
// when one is a prefix of the other.
func CompareTuples(a, b []Value) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

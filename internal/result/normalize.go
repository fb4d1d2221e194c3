package result

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/rowsource/internal/value"
)

var (
	// ErrNotCovered is returned when normalization target columns do not
	// include every original column.
	ErrNotCovered = errors.New("target columns must include all original columns")

	// ErrResultKind is returned when a result of the wrong kind is passed
	// to an operation (e.g. normalizing a Scalar).
	ErrResultKind = errors.New("result must be a *Set or *Mapping")
)

// Normalize re-expresses a result produced against orig columns in terms
// of the wider target columns. Each tuple's values move to the positions
// their column holds in target; positions with no original column are
// filled with the empty-string sentinel.
//
// Returns r unchanged when orig equals target.
func Normalize(r Result, orig, target []string) (Result, error) {
	if slices.Equal(orig, target) {
		return r, nil
	}

	positions := make([]int, len(target))
	for i, col := range target {
		positions[i] = slices.Index(orig, col)
	}
	for _, col := range orig {
		if !slices.Contains(target, col) {
			return nil, fmt.Errorf("%w: %q not in %q", ErrNotCovered, col, target)
		}
	}

	normalize := func(t Tuple) Tuple {
		out := make(Tuple, len(target))
		for i, pos := range positions {
			if pos < 0 || pos >= len(t) {
				out[i] = value.Empty
				continue
			}
			out[i] = t[pos]
		}
		return out
	}

	switch res := r.(type) {
	case *Set:
		out := NewSet()
		for _, t := range res.items {
			out.Add(normalize(t))
		}
		return out, nil
	case *Mapping:
		out := NewMapping(target)
		for _, e := range res.entries {
			if err := out.Set(normalize(e.Key), e.Value); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w, got %T", ErrResultKind, r)
	}
}

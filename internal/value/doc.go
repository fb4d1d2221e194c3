// Package value provides the scalar value model shared by every row source.
//
// This package contains leaf types only. All other internal packages
// import value; value imports nothing internal.
//
// Key design constraints:
//   - Four kinds only: Null, Text, Int, Decimal
//   - NO binary floats - numbers read as float64 are converted to exact decimals
//   - Tuple identity goes through Key, never through == on interface values
package value

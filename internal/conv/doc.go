// Package conv provides checked integer conversions for row positions.
//
// Tables address rows with int, roaring bitmaps with uint32, and bitmap
// cardinalities are uint64. The conversions fail instead of wrapping when a
// value does not fit.
package conv

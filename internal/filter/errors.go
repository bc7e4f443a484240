package filter

import "errors"

var (
	ErrUnknownField   = errors.New("unknown filter field")
	ErrUnknownValue   = errors.New("value not present in column")
	ErrInvalidRange   = errors.New("invalid range")
	ErrNotNumeric     = errors.New("field does not take a range")
	ErrNotCategorical = errors.New("field does not take a selection")
	ErrNoBounds       = errors.New("column has no numeric values")
	ErrUnknownPolicy  = errors.New("unknown range policy")
)

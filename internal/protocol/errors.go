package protocol

import (
	"errors"
	"fmt"
)

// Decoding errors
var (
	ErrStructural  = errors.New("malformed fit data")
	ErrFieldDecode = errors.New("fit field decode failed")
)

// MaxRawLen caps the raw bytes attached to a DecodeError.
const MaxRawLen = 64

// DecodeError tags a parse or decode failure with the stream offset and the
// leading raw bytes of the offending object.
type DecodeError struct {
	Op     string
	Offset int64
	Raw    []byte
	Err    error
}

// NewDecodeError copies at most MaxRawLen bytes of raw.
func NewDecodeError(op string, offset int64, raw []byte, err error) *DecodeError {
	if len(raw) > MaxRawLen {
		raw = raw[:MaxRawLen]
	}
	return &DecodeError{Op: op, Offset: offset, Raw: append([]byte(nil), raw...), Err: err}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fit %s at offset %d (% x): %v", e.Op, e.Offset, e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

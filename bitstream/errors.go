package bitstream

import (
	"fmt"

	"github.com/pkg/errors"
)

// FormatErr is raised by a generated deserialization routine when its
// input violates a schema constraint (an out-of-range union tag, a
// delimiter header larger than the remaining buffer, and so on). The core
// codec never raises it itself -- it cannot, because of implicit zero
// extension -- but defines the type so the top-level deserialize façade
// can recognize it and fall back to "no instance" instead of propagating.
type FormatErr struct {
	msg string
}

// NewFormatError builds a FormatErr with a printf-style message.
func NewFormatError(format string, args ...interface{}) *FormatErr {
	return &FormatErr{msg: fmt.Sprintf(format, args...)}
}

func (e *FormatErr) Error() string {
	return e.msg
}

// usageErrorf builds a usage error: a precondition violation caused by a
// programmer mistake (negative cardinal, unaligned fork, oversize fork,
// and the like). These are distinct from FormatErr and are never expected
// to fire at steady state.
func usageErrorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

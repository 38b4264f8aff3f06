package boss

import (
	"fmt"

	"github.com/cvsouth/u8node/errs"
)

var errDecoding = errs.ErrDecoding

func decodingError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errDecoding}, args...)...)
}

package media

import (
	"errors"
	"fmt"
)

// DefaultMaxBytes caps attachments for models that declare no explicit
// limit. 20 MiB matches the hosted provider's inline payload ceiling.
const DefaultMaxBytes = 20 << 20

var (
	ErrUnsupportedKind = errors.New("unsupported media kind")
	ErrOversized       = errors.New("media exceeds size limit")
)

// Validate checks an attachment against a model's supported kinds and size
// limit. maxBytes <= 0 falls back to DefaultMaxBytes.
func Validate(att Attachment, supported KindSet, maxBytes int64) error {
	if !supported.Has(att.Kind) {
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, att.Kind)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if size := att.DecodedSize(); size > maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrOversized, size, maxBytes)
	}
	return nil
}

package chunk

import "github.com/pkg/errors"

// Sentinel errors for the chunk-structure and signature error classes
// from spec.md §7. Callers compare with errors.Is; pnglib re-exports
// the ones that are part of the public error taxonomy.
var (
	ErrBadSignature     = errors.New("png: not a PNG file")
	ErrAsciiTranslated  = errors.New("png: not a PNG file (ASCII-translated)")
	ErrBadCRC           = errors.New("png: chunk CRC mismatch")
	ErrChunkTooLarge    = errors.New("png: chunk length exceeds the maximum of 2^31-1")
	ErrInvalidTypeBytes = errors.New("png: chunk type is not four ASCII letters")
)

package chunk

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Signature is the 8-byte PNG file signature, per spec.md §6.
var Signature = [8]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// MaxLength is the largest legal chunk payload length (2^31-1), the
// limit spec.md §3 and §7 both reference.
const MaxLength = 1<<31 - 1

// CRCAction controls what a Reader does when a chunk's trailing CRC-32
// does not match the computed value, per spec.md §4.1.
type CRCAction int

const (
	CRCError CRCAction = iota
	CRCWarnUse
	CRCQuietUse
	CRCWarnDiscard
	CRCQuietDiscard
)

// CheckSignature validates the leading bytes of a PNG stream against
// Signature, honoring a caller that has already consumed the first
// preConsumed bytes itself ("pre-consumed" per spec.md §4.1).
func CheckSignature(r io.Reader, preConsumed int) error {
	if preConsumed < 0 || preConsumed > len(Signature) {
		return errors.Errorf("png: invalid pre-consumed signature length %d", preConsumed)
	}
	remaining := len(Signature) - preConsumed
	if remaining == 0 {
		return nil
	}
	buf := make([]byte, remaining)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errors.WithStack(ErrBadSignature)
		}
		return errors.WithStack(err)
	}
	for i, want := range Signature[preConsumed:] {
		if buf[i] != want {
			if preConsumed == 0 && looksAsciiTranslated(buf) {
				return errors.WithStack(ErrAsciiTranslated)
			}
			return errors.WithStack(ErrBadSignature)
		}
	}
	return nil
}

// looksAsciiTranslated detects the classic symptom of a PNG mangled by
// an ASCII-mode FTP transfer or CRLF translation: the high bit of the
// second byte ('P' | 0x80 would be intact, but the CR/LF pair at
// offsets 4-5 is the part most commonly corrupted) — specifically, a
// stream whose first four bytes still read "PNG" but whose CR (0x0D)
// has been dropped or turned into LF.
func looksAsciiTranslated(got []byte) bool {
	if len(got) < 4 {
		return false
	}
	return got[0] == Signature[0] && got[1] == Signature[1] && got[2] == Signature[2] && got[3] == Signature[3]
}

// Raw is one PNG chunk as it appears on the wire: length-prefixed type
// and data, with a trailing CRC-32 over type||data.
type Raw struct {
	Type Type
	Data []byte
	CRC  uint32
}

// ReadRaw reads one length/type/data/crc32 chunk frame from r, applying
// action when the CRC does not match. It mirrors the teacher's
// readChunk in chunk.go, generalized to honor CRCAction and the
// MaxLength bound from spec.md §4.3/§7. The two returned bools are
// independent: keep reports whether the chunk's data should still be
// used, warn reports whether the caller should surface a non-fatal
// warning — CRCWarnUse keeps the data but still warns, CRCQuietDiscard
// drops it silently, and so on for all five CRCAction values.
func ReadRaw(r io.Reader, action CRCAction) (raw Raw, keep, warn bool, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return Raw{}, false, false, errors.WithStack(io.ErrUnexpectedEOF)
		}
		return Raw{}, false, false, errors.WithStack(err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxLength {
		return Raw{}, false, false, errors.WithStack(ErrChunkTooLarge)
	}

	var typBuf [4]byte
	if _, err := io.ReadFull(r, typBuf[:]); err != nil {
		return Raw{}, false, false, errors.WithStack(err)
	}
	typ := Type(typBuf)
	if !typ.IsValidAsciiLetters() {
		return Raw{}, false, false, errors.WithStack(ErrInvalidTypeBytes)
	}

	data := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return Raw{}, false, false, errors.WithStack(err)
		}
	}

	h := NewCRC()
	h.Write(typBuf[:])
	h.Write(data)
	want := h.Sum32()

	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return Raw{}, false, false, errors.WithStack(err)
	}
	got := binary.BigEndian.Uint32(crcBuf[:])

	keep = true
	if got != want {
		switch action {
		case CRCError:
			return Raw{}, false, false, errors.Wrapf(ErrBadCRC, "chunk %s: have %08x want %08x", typ, got, want)
		case CRCWarnUse:
			warn = true // keep data as-is, but tell the caller
		case CRCQuietUse:
			// keep data as-is, no warning
		case CRCWarnDiscard:
			keep, warn = false, true
		case CRCQuietDiscard:
			keep = false
		}
	}
	return Raw{Type: typ, Data: data, CRC: got}, keep, warn, nil
}

// WriteRaw frames and writes one chunk, computing a correct CRC-32.
// Writers never emit a bad CRC, per spec.md §4.1.
func WriteRaw(w io.Writer, typ Type, data []byte) error {
	if len(data) > MaxLength {
		return errors.WithStack(ErrChunkTooLarge)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := w.Write(typ[:]); err != nil {
		return errors.WithStack(err)
	}
	if len(data) > 0 {
		if _, err := w.Write(data); err != nil {
			return errors.WithStack(err)
		}
	}
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], Sum(typ, data))
	if _, err := w.Write(crcBuf[:]); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// WriteSignature writes the 8-byte PNG signature.
func WriteSignature(w io.Writer) error {
	_, err := w.Write(Signature[:])
	return errors.WithStack(err)
}

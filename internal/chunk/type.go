package chunk

// Type is a 4-byte ASCII chunk type code, e.g. "IHDR", "tEXt". The case
// of each letter conveys one property flag, per the PNG 1.2 spec:
//
//	byte 0 (ancillary bit):    upper = critical,   lower = ancillary
//	byte 1 (private bit):      upper = public,     lower = private
//	byte 2 (reserved bit):     upper = conforming, lower = reserved (invalid)
//	byte 3 (safe-to-copy bit): upper = unsafe,     lower = safe to copy
type Type [4]byte

func TypeOf(s string) Type {
	var t Type
	copy(t[:], s)
	return t
}

func (t Type) String() string { return string(t[:]) }

// IsCritical reports whether decoders must understand this chunk to
// render the image correctly (first letter uppercase).
func (t Type) IsCritical() bool { return isUpper(t[0]) }

// IsPublic reports whether the chunk type is registered (second letter
// uppercase) as opposed to a private, application-specific extension.
func (t Type) IsPublic() bool { return isUpper(t[1]) }

// IsReserved reports the reserved bit (third letter); PNG 1.2 requires
// conforming files to keep this uppercase. A lowercase third letter
// marks a chunk from a future, incompatible revision.
func (t Type) IsReserved() bool { return !isUpper(t[2]) }

// IsSafeToCopy reports whether editors that do not understand this
// chunk may copy it through unmodified (fourth letter lowercase).
func (t Type) IsSafeToCopy() bool { return !isUpper(t[3]) }

// IsValidAsciiLetters reports whether all four bytes are ASCII letters,
// the only legal alphabet for a chunk type.
func (t Type) IsValidAsciiLetters() bool {
	for _, c := range t {
		if !isUpper(c) && !isLower(c) {
			return false
		}
	}
	return true
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

// Known chunk type constants, per spec.md §3 and the PNG 1.2 chunk
// registry. These mirror the teacher's ChunkName constants in chunk.go,
// extended to the full ancillary set SPEC_FULL.md requires.
var (
	IHDR = TypeOf("IHDR")
	PLTE = TypeOf("PLTE")
	IDAT = TypeOf("IDAT")
	IEND = TypeOf("IEND")

	TRNS = TypeOf("tRNS")
	GAMA = TypeOf("gAMA")
	CHRM = TypeOf("cHRM")
	SRGB = TypeOf("sRGB")
	ICCP = TypeOf("iCCP")
	SBIT = TypeOf("sBIT")
	BKGD = TypeOf("bKGD")
	HIST = TypeOf("hIST")
	PHYS = TypeOf("pHYs")
	SPLT = TypeOf("sPLT")
	SCAL = TypeOf("sCAL")
	PCAL = TypeOf("pCAL")
	OFFS = TypeOf("oFFs")
	TIME = TypeOf("tIME")
	TEXT = TypeOf("tEXt")
	ZTXT = TypeOf("zTXt")
	ITXT = TypeOf("iTXt")
)

// singleInstance lists ancillary chunk types that may appear at most
// once, per spec.md §3. tEXt/zTXt/iTXt and sPLT (distinct names) are
// deliberately absent.
var singleInstance = map[Type]bool{
	TRNS: true, GAMA: true, CHRM: true, SRGB: true, ICCP: true,
	SBIT: true, BKGD: true, HIST: true, PHYS: true, SCAL: true,
	PCAL: true, OFFS: true, TIME: true,
}

// IsSingleInstance reports whether a second occurrence of t must be
// discarded with a warning rather than accumulated.
func IsSingleInstance(t Type) bool { return singleInstance[t] }

// known is the set of chunk types this library has a registered parser
// for; anything else becomes chunk.Unknown.
var known = map[Type]bool{
	IHDR: true, PLTE: true, IDAT: true, IEND: true,
	TRNS: true, GAMA: true, CHRM: true, SRGB: true, ICCP: true,
	SBIT: true, BKGD: true, HIST: true, PHYS: true, SPLT: true,
	SCAL: true, PCAL: true, OFFS: true, TIME: true,
	TEXT: true, ZTXT: true, ITXT: true,
}

// IsKnown reports whether t has a registered parser/serializer.
func IsKnown(t Type) bool { return known[t] }

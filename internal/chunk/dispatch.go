package chunk

import "github.com/pkg/errors"

// State is a position in the chunk-ordering state machine from
// spec.md §4.2.
type State int

const (
	BeforeSignature State = iota
	BeforeIHDR
	HaveIHDR
	HavePLTE
	InIDAT
	AfterIDAT
	AfterIEND
)

var (
	ErrChunkOrder        = errors.New("png: chunk out of order")
	ErrDuplicateIHDR     = errors.New("png: duplicate IHDR")
	ErrDuplicatePLTE     = errors.New("png: duplicate PLTE")
	ErrDuplicateIEND     = errors.New("png: duplicate IEND")
	ErrUnknownCritical   = errors.New("png: unknown critical chunk")
	ErrIDATNotContiguous = errors.New("png: IDAT chunks are not contiguous")
)

// Location records where an unknown chunk was encountered on read,
// relative to PLTE and IDAT, so a write-through pass can re-emit it in
// the same slot (spec.md §3).
type Location int

const (
	LocationBeforePLTE Location = iota
	LocationBeforeIDAT
	LocationAfterIDAT
)

// Machine enforces the read-side chunk ordering invariants of
// spec.md §4.2. It is driven one chunk type at a time; the caller is
// responsible for actually parsing the chunk body.
type Machine struct {
	state          State
	allowedUnknown map[Type]bool
}

// NewMachine returns a state machine positioned at BeforeIHDR, the
// state immediately following signature verification.
func NewMachine(allowedUnknownCritical []Type) *Machine {
	m := &Machine{state: BeforeIHDR}
	if len(allowedUnknownCritical) > 0 {
		m.allowedUnknown = make(map[Type]bool, len(allowedUnknownCritical))
		for _, t := range allowedUnknownCritical {
			m.allowedUnknown[t] = true
		}
	}
	return m
}

// State returns the machine's current state.
func (m *Machine) State() State { return m.state }

// Location reports where, relative to PLTE/IDAT, a chunk encountered
// right now would be recorded, for unknown-chunk bookkeeping.
func (m *Machine) Location() Location {
	switch {
	case m.state < HavePLTE:
		return LocationBeforePLTE
	case m.state < InIDAT:
		return LocationBeforeIDAT
	default:
		return LocationAfterIDAT
	}
}

// Advance validates that typ may legally appear in the current state
// and transitions the machine.
func (m *Machine) Advance(typ Type) error {
	switch typ {
	case IHDR:
		if m.state != BeforeIHDR {
			if m.state == BeforeSignature {
				return errors.WithStack(ErrChunkOrder)
			}
			return errors.WithStack(ErrDuplicateIHDR)
		}
		m.state = HaveIHDR
		return nil

	case PLTE:
		if m.state != HaveIHDR {
			if m.state >= HavePLTE {
				return errors.WithStack(ErrDuplicatePLTE)
			}
			return errors.WithStack(ErrChunkOrder)
		}
		m.state = HavePLTE
		return nil

	case IDAT:
		switch m.state {
		case HaveIHDR, HavePLTE:
			m.state = InIDAT
			return nil
		case InIDAT:
			return nil
		default:
			return errors.WithStack(ErrIDATNotContiguous)
		}

	case IEND:
		if m.state == AfterIEND {
			return errors.WithStack(ErrDuplicateIEND)
		}
		if m.state < HaveIHDR {
			return errors.WithStack(ErrChunkOrder)
		}
		m.state = AfterIEND
		return nil

	default:
		if m.state < HaveIHDR {
			return errors.WithStack(ErrChunkOrder)
		}
		if m.state == InIDAT {
			m.state = AfterIDAT
		}
		if !IsKnown(typ) && typ.IsCritical() && !m.allowedUnknown[typ] {
			return errors.Wrapf(ErrUnknownCritical, "chunk %s", typ)
		}
		return nil
	}
}

package chunk

import "testing"

func TestMachineHappyPath(t *testing.T) {
	m := NewMachine(nil)
	steps := []Type{IHDR, PLTE, IDAT, IDAT, IEND}
	for _, typ := range steps {
		if err := m.Advance(typ); err != nil {
			t.Fatalf("Advance(%s): %v", typ, err)
		}
	}
	if m.State() != AfterIEND {
		t.Errorf("final state = %v, want AfterIEND", m.State())
	}
}

func TestMachineRejectsIDATBeforeIHDR(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Advance(IDAT); err == nil {
		t.Fatal("want error for IDAT before IHDR")
	}
}

func TestMachineRejectsDuplicateIHDR(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Advance(IHDR); err != nil {
		t.Fatalf("Advance(IHDR): %v", err)
	}
	if err := m.Advance(IHDR); err == nil {
		t.Fatal("want error for duplicate IHDR")
	}
}

func TestMachineRejectsNonContiguousIDAT(t *testing.T) {
	m := NewMachine(nil)
	for _, typ := range []Type{IHDR, IDAT, TypeOf("tEXt")} {
		if err := m.Advance(typ); err != nil {
			t.Fatalf("Advance(%s): %v", typ, err)
		}
	}
	if err := m.Advance(IDAT); err == nil {
		t.Fatal("want error for IDAT resuming after a non-IDAT chunk")
	}
}

func TestMachineUnknownCritical(t *testing.T) {
	m := NewMachine(nil)
	for _, typ := range []Type{IHDR, IDAT} {
		if err := m.Advance(typ); err != nil {
			t.Fatalf("Advance(%s): %v", typ, err)
		}
	}
	unknown := Type{'X', 'y', 'z', 'a'} // critical (uppercase first letter), unregistered
	if err := m.Advance(unknown); err == nil {
		t.Fatal("want error for an unknown critical chunk")
	}

	allowed := NewMachine([]Type{unknown})
	for _, typ := range []Type{IHDR, IDAT} {
		if err := allowed.Advance(typ); err != nil {
			t.Fatalf("Advance(%s): %v", typ, err)
		}
	}
	if err := allowed.Advance(unknown); err != nil {
		t.Errorf("Advance(%s) with allowlist: %v", unknown, err)
	}
}

func TestMachineLocation(t *testing.T) {
	m := NewMachine(nil)
	if m.Location() != LocationBeforePLTE {
		t.Errorf("Location() before IHDR = %v, want LocationBeforePLTE", m.Location())
	}
	if err := m.Advance(IHDR); err != nil {
		t.Fatal(err)
	}
	if m.Location() != LocationBeforePLTE {
		t.Errorf("Location() after IHDR = %v, want LocationBeforePLTE", m.Location())
	}
	if err := m.Advance(IDAT); err != nil {
		t.Fatal(err)
	}
	if m.Location() != LocationAfterIDAT {
		t.Errorf("Location() in IDAT = %v, want LocationAfterIDAT", m.Location())
	}
}

package pnglib

import (
	"bytes"
	"testing"

	"github.com/xczero/pnglib/internal/meta"
)

func testIHDR(w, h uint32, ct meta.ColorType, bitDepth uint8) meta.IHDR {
	return meta.IHDR{Width: w, Height: h, BitDepth: bitDepth, ColorType: ct}
}

func TestWriteReadRGBRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	ihdr := testIHDR(2, 2, meta.RGB, 8)
	if err := w.SetIHDR(ihdr); err != nil {
		t.Fatalf("SetIHDR: %v", err)
	}
	if err := w.WriteInfo(); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}
	rows := [][]byte{
		{1, 2, 3, 4, 5, 6},
		{7, 8, 9, 10, 11, 12},
	}
	if err := w.WriteImage(rows); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	if err := w.WriteEnd(); err != nil {
		t.Fatalf("WriteEnd: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if _, err := r.ReadInfo(); err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	got, err := r.ReadImage()
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	for i, row := range rows {
		if !bytes.Equal(got[i], row) {
			t.Errorf("row %d = %v, want %v", i, got[i], row)
		}
	}
	if _, err := r.ReadEnd(); err != nil {
		t.Fatalf("ReadEnd: %v", err)
	}
}

func TestWriteReadAdam7RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	ihdr := testIHDR(4, 4, meta.Gray, 8)
	ihdr.InterlaceMethod = meta.InterlaceAdam7
	if err := w.SetIHDR(ihdr); err != nil {
		t.Fatalf("SetIHDR: %v", err)
	}
	if err := w.WriteInfo(); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}
	rows := make([][]byte, 4)
	for y := range rows {
		rows[y] = []byte{byte(y*4 + 0), byte(y*4 + 1), byte(y*4 + 2), byte(y*4 + 3)}
	}
	if err := w.WriteImage(rows); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	if err := w.WriteEnd(); err != nil {
		t.Fatalf("WriteEnd: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if _, err := r.ReadInfo(); err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	got, err := r.ReadImage()
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	for y := range rows {
		if !bytes.Equal(got[y], rows[y]) {
			t.Errorf("row %d = %v, want %v", y, got[y], rows[y])
		}
	}
}

func TestWriteAncillaryChunksRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.SetIHDR(testIHDR(1, 1, meta.Gray, 8)); err != nil {
		t.Fatalf("SetIHDR: %v", err)
	}
	if err := w.SetGama(meta.Gama{Gamma100000: 45455}); err != nil {
		t.Fatalf("SetGama: %v", err)
	}
	w.AddText(meta.Text{Keyword: "Comment", Value: "hi"})
	if err := w.WriteInfo(); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}
	if err := w.WriteImage([][]byte{{42}}); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	if err := w.WriteEnd(); err != nil {
		t.Fatalf("WriteEnd: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	store, err := r.ReadInfo()
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	if store.Gama == nil || store.Gama.Gamma100000 != 45455 {
		t.Errorf("Gama = %+v, want 45455", store.Gama)
	}
	if _, err := r.ReadImage(); err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	final, err := r.ReadEnd()
	if err != nil {
		t.Fatalf("ReadEnd: %v", err)
	}
	if len(final.Text) != 1 || final.Text[0].Value != "hi" {
		t.Errorf("Text = %+v, want one entry with value hi", final.Text)
	}
}

func TestSetIHDRTwiceIsImmutable(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.SetIHDR(testIHDR(1, 1, meta.Gray, 8)); err != nil {
		t.Fatalf("SetIHDR: %v", err)
	}
	if err := w.SetIHDR(testIHDR(2, 2, meta.Gray, 8)); err == nil {
		t.Fatal("want an error setting IHDR a second time")
	}
}

func TestWriteInfoWithoutIHDRFails(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteInfo(); err == nil {
		t.Fatal("want an error calling WriteInfo before SetIHDR")
	}
}

func TestWriteRowWrongLengthFails(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.SetIHDR(testIHDR(2, 1, meta.Gray, 8)); err != nil {
		t.Fatalf("SetIHDR: %v", err)
	}
	if err := w.WriteInfo(); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}
	if err := w.WriteRow([]byte{1}); err == nil {
		t.Fatal("want an error for a row of the wrong length")
	}
}

func TestWriteRowOnInterlacedImageFails(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	ihdr := testIHDR(2, 2, meta.Gray, 8)
	ihdr.InterlaceMethod = meta.InterlaceAdam7
	if err := w.SetIHDR(ihdr); err != nil {
		t.Fatalf("SetIHDR: %v", err)
	}
	if err := w.WriteInfo(); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}
	if err := w.WriteRow([]byte{1, 2}); err == nil {
		t.Fatal("want an error calling WriteRow on an Adam7 stream")
	}
}

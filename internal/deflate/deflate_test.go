package deflate

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
)

func TestDefaultOptions(t *testing.T) {
	opt := DefaultOptions()
	if opt.Level != DefaultLevel || opt.WindowBits != DefaultWindowBits || opt.MaxIDATSize != DefaultMaxIDAT {
		t.Errorf("DefaultOptions() = %+v, unexpected defaults", opt)
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	w, err := NewWriter(DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	payload := bytes.Repeat([]byte("scanline data "), 100)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(bytes.NewReader(w.Bytes()), Options{})
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(payload))
	}
}

func TestWriterBytesAndReset(t *testing.T) {
	w, err := NewWriter(DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(w.Bytes()) == 0 {
		t.Fatal("Bytes() empty after Flush")
	}
	w.Reset()
	if len(w.Bytes()) != 0 {
		t.Error("Reset() should clear the accumulated buffer")
	}
}

func TestReaderBadHeader(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x00, 0x00, 0x00}), Options{})
	_, err := r.Read(make([]byte, 4))
	if err == nil {
		t.Fatal("want an error for a malformed zlib header")
	}
}

func TestReaderTruncatedStream(t *testing.T) {
	w, err := NewWriter(DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(bytes.Repeat([]byte("x"), 1000)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	full := w.Bytes()
	truncated := full[:len(full)-4]

	r := NewReader(bytes.NewReader(truncated), Options{})
	_, err = io.ReadAll(r)
	if err == nil {
		t.Fatal("want an error for a truncated zlib stream")
	}
}

func TestReaderAdlerMismatchIsErrorByDefault(t *testing.T) {
	w, err := NewWriter(DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("payload bytes")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	corrupt := append([]byte(nil), w.Bytes()...)
	corrupt[len(corrupt)-1] ^= 0xff // corrupt the trailing Adler-32 byte

	r := NewReader(bytes.NewReader(corrupt), Options{})
	_, err = io.ReadAll(r)
	if !errors.Is(err, ErrAdler32) {
		t.Fatalf("want ErrAdler32, got %v", err)
	}
}

func TestReaderIgnoreAdlerMismatchTreatsItAsEOF(t *testing.T) {
	w, err := NewWriter(DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	payload := []byte("payload bytes")
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	corrupt := append([]byte(nil), w.Bytes()...)
	corrupt[len(corrupt)-1] ^= 0xff // corrupt the trailing Adler-32 byte

	r := NewReader(bytes.NewReader(corrupt), Options{IgnoreAdlerMismatch: true})
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll with IgnoreAdlerMismatch: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestSplitIDATChunksByMax(t *testing.T) {
	data := bytes.Repeat([]byte{1}, 25)
	chunks := SplitIDAT(data, 10)
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 10 || len(chunks[1]) != 10 || len(chunks[2]) != 5 {
		t.Errorf("chunk sizes = %v, want [10 10 5]", []int{len(chunks[0]), len(chunks[1]), len(chunks[2])})
	}
	var reassembled []byte
	for _, c := range chunks {
		reassembled = append(reassembled, c...)
	}
	if !bytes.Equal(reassembled, data) {
		t.Error("chunks do not reassemble to the original data")
	}
}

func TestSplitIDATEmptyDataStillReturnsOneChunk(t *testing.T) {
	chunks := SplitIDAT(nil, 10)
	if len(chunks) != 1 || len(chunks[0]) != 0 {
		t.Errorf("SplitIDAT(nil) = %v, want one empty chunk", chunks)
	}
}

func TestSplitIDATNonPositiveMaxUsesDefault(t *testing.T) {
	data := make([]byte, DefaultMaxIDAT+1)
	chunks := SplitIDAT(data, 0)
	if len(chunks) != 2 {
		t.Errorf("len(chunks) = %d, want 2 when max<=0 falls back to DefaultMaxIDAT", len(chunks))
	}
}

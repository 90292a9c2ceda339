package processors

import (
	"bytes"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	c, err := NewCompressor(0)
	if err != nil {
		t.Fatalf("NewCompressor() error = %v", err)
	}
	defer c.Close()

	input := []byte(strings.Repeat("1,\"main\",TRUE,0\n", 500))
	frame := c.Frame(input)

	if !IsCompressed(frame) {
		t.Fatal("frame does not start with zstd magic")
	}
	if len(frame) >= len(input) {
		t.Errorf("repetitive input did not shrink: %d >= %d", len(frame), len(input))
	}

	out, err := Decompress(frame)
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Error("round trip changed the data")
	}
}

func TestConcatenatedFrames(t *testing.T) {
	c, err := NewCompressor(1)
	if err != nil {
		t.Fatalf("NewCompressor() error = %v", err)
	}
	defer c.Close()

	first := []byte("count,name,pdbid\n5,\"a\\,b\",0\n")
	second := []byte("7,\"x\",1\n")

	var file []byte
	file = append(file, c.Frame(first)...)
	file = append(file, c.Frame(second)...)

	out, err := Decompress(file)
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if string(out) != string(first)+string(second) {
		t.Errorf("Decompress() = %q", out)
	}
}

func TestFrameEmptyInput(t *testing.T) {
	c, err := NewCompressor(3)
	if err != nil {
		t.Fatalf("NewCompressor() error = %v", err)
	}
	defer c.Close()

	if got := c.Frame(nil); len(got) != 0 {
		t.Errorf("Frame(nil) = %d bytes, want 0", len(got))
	}
	if IsCompressed([]byte("plain")) {
		t.Error("plain text reported as compressed")
	}
}

package controller

import (
	"testing"
)

func TestFrameDecoder_Decode(t *testing.T) {
	valid := jpegHex(t, 4, 3)

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "valid jpeg", in: valid},
		{name: "uppercase hex", in: toUpper(valid)},
		{name: "empty", in: "", wantErr: true},
		{name: "odd length", in: "abc", wantErr: true},
		{name: "not hex", in: "zzzz", wantErr: true},
		{name: "hex but not an image", in: "deadbeef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFrameDecoder()
			img, err := f.decode(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decode(%q) expected error", tt.in)
				}
			} else {
				if err != nil {
					t.Fatalf("decode() error = %v", err)
				}
				if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
					t.Errorf("decode() size = %dx%d, want 4x3", b.Dx(), b.Dy())
				}
			}
			if n := f.inFlight(); n != 0 {
				t.Errorf("inFlight() = %d, want 0", n)
			}
		})
	}
}

func TestFrameDecoder_ReusesBuffers(t *testing.T) {
	f := newFrameDecoder()
	buf := f.acquire(10)
	if len(*buf) != 10 {
		t.Fatalf("acquire() len = %d, want 10", len(*buf))
	}
	if f.inFlight() != 1 {
		t.Fatalf("inFlight() = %d, want 1", f.inFlight())
	}
	f.release(buf)
	if f.inFlight() != 0 {
		t.Errorf("inFlight() = %d, want 0", f.inFlight())
	}
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

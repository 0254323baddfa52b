package rfid125

import (
	"errors"
	"testing"

	"labtrack-go/x/shmring"
)

func TestParseTag(t *testing.T) {
	f := Frame("0A1B2C3D4E")
	if len(f) != FrameLen {
		t.Fatalf("frame len %d", len(f))
	}
	// 0A^1B^2C^3D^4E = 0x4E
	if string(f[11:13]) != "4E" {
		t.Fatalf("checksum chars %q", f[11:13])
	}
	id, err := ParseTag(f)
	if err != nil || string(id) != "0A1B2C3D4E" {
		t.Fatalf("ParseTag: %q %v", id, err)
	}
}

func TestParseTagErrors(t *testing.T) {
	good := Frame("0A1B2C3D4E")
	bad := func(mut func([]byte)) []byte {
		f := append([]byte(nil), good...)
		mut(f)
		return f
	}
	cases := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"short", good[:8], ErrShort},
		{"no stx", bad(func(f []byte) { f[0] = 'X' }), ErrFraming},
		{"no etx", bad(func(f []byte) { f[13] = 0 }), ErrFraming},
		{"hex", bad(func(f []byte) { f[3] = 'Z' }), ErrHex},
		{"checksum", bad(func(f []byte) { f[12] = '0' }), ErrChecksum},
	}
	for _, c := range cases {
		if _, err := ParseTag(c.frame); !errors.Is(err, c.want) {
			t.Errorf("%s: got %v want %v", c.name, err, c.want)
		}
	}
}

func TestIdentify(t *testing.T) {
	f := Frame("00112233AA")
	if _, done := Identify(f[:6]); done {
		t.Fatal("partial frame reported complete")
	}
	if id, done := Identify(append([]byte{0xFF}, f...)); !done || string(id) != "00112233AA" {
		t.Fatalf("leading noise: %q %v", id, done)
	}
	if id, done := Identify([]byte("garbage")); !done || id != nil {
		t.Fatalf("noise: %q %v", id, done)
	}
	f[12] ^= 1
	if id, done := Identify(f); !done || id != nil {
		t.Fatalf("corrupt: %q %v", id, done)
	}
}

func TestReaderAccumulatesAndClears(t *testing.T) {
	ring := shmring.New(64)
	r := New(ring)
	if r.Available() {
		t.Fatal("empty ring reported available")
	}
	f := Frame("0A1B2C3D4E")
	ring.WriteFrom(f[:5])
	if got := r.Read(); string(got) != string(f[:5]) {
		t.Fatalf("first read %q", got)
	}
	ring.WriteFrom(f[5:])
	if got := r.Read(); string(got) != string(f) {
		t.Fatalf("second read %q", got)
	}

	ring.WriteFrom(make([]byte, 20))
	if got := r.Read(); len(got) != BufferSize {
		t.Fatalf("buffer not capped: %d", len(got))
	}
	r.Clear()
	if r.Available() || len(r.Read()) != 0 {
		t.Fatal("clear left data behind")
	}
}

package errcode

import (
	"errors"
	"testing"
)

func TestOf(t *testing.T) {
	cause := errors.New("bus stuck")
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", Busy, Busy},
		{"wrapped", &E{C: Timeout, Op: "lcd.write", Err: cause}, Timeout},
		{"foreign", cause, Error},
	}
	for _, tc := range cases {
		if got := Of(tc.err); got != tc.want {
			t.Errorf("%s: Of() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEUnwrapAndMessage(t *testing.T) {
	cause := errors.New("nack")
	e := &E{C: Timeout, Op: "gateway.read_status", Msg: "addr 0x42", Err: cause}
	if !errors.Is(e, cause) {
		t.Fatal("errors.Is should see the cause")
	}
	want := "gateway.read_status: timeout: addr 0x42 (nack)"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
}

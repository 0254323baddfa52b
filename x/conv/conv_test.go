package conv

import "testing"

func TestItoa(t *testing.T) {
	for _, c := range []struct {
		in   int
		want string
	}{{0, "0"}, {7, "7"}, {66, "66"}, {-42, "-42"}, {1234567890, "1234567890"}} {
		if got := Itoa(c.in); got != c.want {
			t.Errorf("Itoa(%d) = %q want %q", c.in, got, c.want)
		}
	}
}

func TestPad(t *testing.T) {
	for _, c := range []struct {
		in    uint64
		width int
		want  string
	}{{0, 2, "00"}, {5, 2, "05"}, {65, 2, "65"}, {123, 2, "123"}, {9, 0, "9"}} {
		if got := Pad(c.in, c.width); got != c.want {
			t.Errorf("Pad(%d,%d) = %q want %q", c.in, c.width, got, c.want)
		}
	}
}

func TestAppendKeepsPrefix(t *testing.T) {
	if got := string(AppendInt([]byte("dev-"), 66)); got != "dev-66" {
		t.Fatalf("got %q", got)
	}
}

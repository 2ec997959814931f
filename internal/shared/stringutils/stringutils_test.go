package stringutils

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncate me", 6, "trunc…"},
		{"héllo wörld", 5, "héll…"},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.n); got != c.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestMinutes(t *testing.T) {
	cases := map[float64]string{
		0:     "0m",
		42:    "42m",
		59.6:  "1h 00m",
		65:    "1h 05m",
		150.2: "2h 30m",
	}
	for in, want := range cases {
		if got := Minutes(in); got != want {
			t.Errorf("Minutes(%v) = %q, want %q", in, got, want)
		}
	}
}

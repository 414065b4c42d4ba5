package clock

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"06:30", 390},
		{"23:59", 1439},
		{"12:00", 720},
	}

	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "630", "24:00", "12:60", "-1:00", "ab:cd", "12:"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", in)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{390, "06:30"},
		{1439, "23:59"},
		{1440, "00:00"},
		{-30, "23:30"},
	}

	for _, c := range cases {
		if got := Format(c.in); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAdd_WrapsAcrossMidnight(t *testing.T) {
	cases := []struct {
		minutes, delta, want int
	}{
		{1430, 30, 20},   // 23:50 + 30m = 00:20
		{20, -40, 1420},  // 00:20 - 40m = 23:40
		{390, 0, 390},    // identity
		{0, -1440, 0},    // full-day wrap
		{720, 2880, 720}, // multi-day wrap
	}

	for _, c := range cases {
		if got := Add(c.minutes, c.delta); got != c.want {
			t.Errorf("Add(%d, %d) = %d, want %d", c.minutes, c.delta, got, c.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for m := 0; m < MinutesPerDay; m += 37 {
		got, err := Parse(Format(m))
		if err != nil {
			t.Fatal(err)
		}
		if got != m {
			t.Fatalf("round trip of %d produced %d", m, got)
		}
	}
}

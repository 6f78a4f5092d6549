package racetime

import "testing"

func TestParseDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
	}{
		{"1:21:37", 4897},
		{"21:37", 1297},
		{"0:59", 59},
		{"10:00:00", 36000},
		{"1:45:00", 6300},
		{"21:37.45", 1297},
		{"21:37,4", 1297},
		{" 1:02:03 ", 3723},
	}

	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseDuration(%q)=%d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseDurationRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "abc", "90", "1:2:3:4", "12:", ":30", "1:xx:00", "21:37."} {
		if _, err := ParseDuration(in); err == nil {
			t.Fatalf("ParseDuration(%q): expected error, got nil", in)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   int
		want string
	}{
		{4897, "1:21:37"},
		{1297, "21:37"},
		{59, "0:59"},
		{3600, "1:00:00"},
		{6300, "1:45:00"},
		{-5, "0:00"},
	}

	for _, tc := range cases {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Fatalf("FormatDuration(%d)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"1:21:37", "21:37", "2:00:00", "0:45"} {
		seconds, err := ParseDuration(in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", in, err)
		}
		back, err := ParseDuration(FormatDuration(seconds))
		if err != nil {
			t.Fatalf("re-parse of %q: %v", FormatDuration(seconds), err)
		}
		if back != seconds {
			t.Fatalf("round trip of %q lost seconds: %d != %d", in, back, seconds)
		}
	}
}

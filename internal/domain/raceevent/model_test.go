package raceevent

import "testing"

func TestNormalizeSource(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sporthive", SourceSporthive},
		{" Sporthive ", SourceSporthive},
		{"RACERESULT", SourceRaceResult},
		{"pdf", SourcePDF},
		{"strava", ""},
		{"", ""},
	}

	for _, tc := range tests {
		if got := NormalizeSource(tc.in); got != tc.want {
			t.Errorf("NormalizeSource(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

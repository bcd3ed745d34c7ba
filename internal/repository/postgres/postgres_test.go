package postgres

import "testing"

func TestProfessionPatternEscapesLikeMetacharacters(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Engenheiro", "%Engenheiro%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`back\slash`, `%back\\slash%`},
		{"", "%%"},
	}
	for _, tc := range cases {
		if got := professionPattern(tc.in); got != tc.want {
			t.Errorf("professionPattern(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

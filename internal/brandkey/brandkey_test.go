package brandkey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "blank", in: "   ", want: ""},
		{name: "empty", in: "", want: ""},
		{name: "hash store number", in: "Subway #1234", want: "subway"},
		{name: "no dot store number", in: "subway no. 1234", want: "subway"},
		{name: "number word", in: "Subway Number 9", want: "subway"},
		{name: "ampersand", in: "Salt & Pepper Deli", want: "salt and pepper deli"},
		{name: "apostrophe", in: "Jimmy John's", want: "jimmy johns"},
		{name: "curly quotes", in: "Capriotti’s “Sandwich” Shop", want: "capriottis sandwich shop"},
		{name: "diacritics", in: "Café Crème Bánh Mì", want: "cafe creme banh mi"},
		{name: "punctuation runs", in: "  Tiny -- Sandwich, Co.  ", want: "tiny sandwich co"},
		{name: "no without digits kept", in: "No Name Deli", want: "no name deli"},
		{name: "digits inside words kept", in: "Route66 Subs", want: "route66 subs"},
		{name: "underscore separator", in: "deli no_12", want: "deli"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeEquivalentVariants(t *testing.T) {
	assert.Equal(t, "subway", Normalize("Subway #1234"))
	assert.Equal(t, Normalize("Subway #1234"), Normalize("subway no. 1234"))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Subway #1234",
		"  Jersey Mike's Subs — Store No. 17 ",
		"Ñandú & Co.",
		"no-5",
		"x_no 5_y",
		"#12#13 number 7 no.8",
		"Über Sandwich Haus",
		"汉堡 & 三明治 #4",
		strings.Repeat("abc ", 19) + "no 12345",
		strings.Repeat("a", 78) + " no 1234567",
		"''\"\"",
		"&&&",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeTruncates(t *testing.T) {
	out := Normalize(strings.Repeat("sandwich ", 20))
	assert.LessOrEqual(t, len([]rune(out)), MaxKeyLength)
	assert.False(t, strings.HasSuffix(out, " "))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Tiny Sandwich Co", DisplayName("  Tiny \t Sandwich\n Co "))
	assert.Equal(t, "", DisplayName("   "))

	long := DisplayName(strings.Repeat("x", 200))
	assert.Len(t, []rune(long), MaxDisplayNameLength)
}

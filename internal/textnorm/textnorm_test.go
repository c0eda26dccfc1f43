package textnorm

import (
	"strings"
	"testing"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"runs", "hello   world", "hello world"},
		{"mixed whitespace", "hello\t\n  world", "hello world"},
		{"leading and trailing", "  hello world  ", "hello world"},
		{"korean", "연  5.5%의\n이자", "연 5.5%의 이자"},
		{"empty", "", ""},
		{"only spaces", "   \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got.Text != tt.want {
				t.Errorf("Normalize(%q).Text = %q, want %q", tt.in, got.Text, tt.want)
			}
			if len(got.Map) != len([]rune(got.Text)) {
				t.Errorf("offset map length %d does not match %d normalized runes",
					len(got.Map), len([]rune(got.Text)))
			}
		})
	}
}

func TestNormalizeCaseFolds(t *testing.T) {
	got := Normalize("Hello WORLD")
	if got.Text != "hello world" {
		t.Errorf("got %q, want %q", got.Text, "hello world")
	}
}

func TestNormalizeRemovesSoftHyphenation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hyphen at line break", "inter-\nest rate", "interest rate"},
		{"soft hyphen rune", "inter­est", "interest"},
		{"plain hyphen kept", "well-known terms", "well-known terms"},
		{"hyphen crlf", "pay-\r\nment", "payment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got.Text != tt.want {
				t.Errorf("Normalize(%q).Text = %q, want %q", tt.in, got.Text, tt.want)
			}
		})
	}
}

func TestNormalizeComposesJamo(t *testing.T) {
	// Decomposed Hangul (NFD) must compose to the precomposed form.
	decomposed := "한"
	got := Normalize(decomposed)
	if got.Text != "한" {
		t.Errorf("got %q, want %q", got.Text, "한")
	}
	if len(got.Map) != 1 || got.Map[0] != 0 {
		t.Errorf("composed rune should map to origin 0, got %v", got.Map)
	}
}

func TestOffsetMapPointsIntoOriginal(t *testing.T) {
	original := "The  quick\nBROWN-\nfox"
	res := Normalize(original)
	origRunes := []rune(original)

	for i, r := range res.Runes() {
		oi := res.Map[i]
		if oi < 0 || oi >= len(origRunes) {
			t.Fatalf("Map[%d] = %d out of range", i, oi)
		}
		if r == ' ' {
			continue // collapsed whitespace maps to the first whitespace rune
		}
		orig := origRunes[oi]
		if strings.ToLower(string(orig)) != string(r) {
			t.Errorf("normalized rune %q at %d maps to original %q at %d", r, i, orig, oi)
		}
	}
}

func TestOrigSpanRoundTrip(t *testing.T) {
	original := "계약 기간은   연 5.5%의\n이자를 적용한다"
	res := Normalize(original)

	needle := Normalize("연 5.5%의 이자")
	idx := strings.Index(res.Text, needle.Text)
	if idx < 0 {
		t.Fatalf("normalized needle %q not found in %q", needle.Text, res.Text)
	}

	nStart := len([]rune(res.Text[:idx]))
	nEnd := nStart + len(needle.Runes())
	oStart, oEnd := res.OrigSpan(nStart, nEnd)

	snippet := string([]rune(original)[oStart:oEnd])
	if Normalize(snippet).Text != needle.Text {
		t.Errorf("de-normalized span %q does not re-normalize to needle %q", snippet, needle.Text)
	}
}

func TestTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"연 5.5%의 이자", []string{"연", "5", "5", "의", "이", "자"}},
		{"", nil},
		{"a,b.c", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		got := Tokens(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("Tokens(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Tokens(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestJaccard(t *testing.T) {
	if got := Jaccard([]string{"a", "b"}, []string{"a", "b"}); got != 1.0 {
		t.Errorf("identical sets: got %f, want 1.0", got)
	}
	if got := Jaccard([]string{"a"}, []string{"b"}); got != 0.0 {
		t.Errorf("disjoint sets: got %f, want 0.0", got)
	}
	if got := Jaccard(nil, nil); got != 1.0 {
		t.Errorf("empty sets: got %f, want 1.0", got)
	}
	got := Jaccard([]string{"a", "b", "c"}, []string{"b", "c", "d"})
	if got < 0.49 || got > 0.51 {
		t.Errorf("half overlap: got %f, want 0.5", got)
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("Hello  World", "hello world"); got != 1.0 {
		t.Errorf("whitespace/case variants: got %f, want 1.0", got)
	}
	if got := Similarity("임대차 계약", "자동차 보험"); got >= 0.95 {
		t.Errorf("unrelated texts should be dissimilar, got %f", got)
	}
}

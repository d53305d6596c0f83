package textnorm

import "testing"

func TestNormalizeRepairsKnownSequences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "apostrophe cp1252", in: "Itâ€™s live", want: "It’s live"},
		{name: "apostrophe latin1", in: "Itâ\u0080\u0099s live", want: "It’s live"},
		{name: "open quote", in: "â€œhello", want: "“hello"},
		{name: "ellipsis", in: "wait forâ€¦", want: "wait for…"},
		{name: "em dash", in: "AIâ€\u201dtoday", want: "AI—today"},
		{name: "accented", in: "CafÃ©", want: "Café"},
		{name: "truncated quote", in: "sayâ€ more", want: "say\" more"},
		{name: "stray non-breaking marker", in: "costÂ 5", want: "cost 5"},
		{name: "double encoded", in: "Ã¢â‚¬â„¢", want: "’"},
		{name: "double encoded in word", in: "donÃ¢â‚¬â„¢t", want: "don’t"},
		{name: "byte order mark", in: "\ufeffTitle", want: "Title"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeLeavesCleanTextUntouched(t *testing.T) {
	clean := []string{
		"",
		"Plain ASCII text. With sentences!",
		"Café naïve “quoted” — it’s fine…",
		"Größe und Ärger",
		"Title: Episode 12\nDescription: news",
		"日本語 \U0001F3A7",
	}
	for _, in := range clean {
		if got := Normalize(in); got != in {
			t.Fatalf("Normalize changed clean text %q to %q", in, got)
		}
		if HasMojibake(in) {
			t.Fatalf("HasMojibake(%q) = true", in)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Itâ€™s â€œgreatâ€\u009d",
		"Ã¢â‚¬â„¢ nested",
		"ÃÂ©",
		"â€â€â€",
		"Â Â Â",
		"mixed Café and CafÃ©",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestRepairReportsChange(t *testing.T) {
	out, changed := Repair("donâ€™t")
	if !changed {
		t.Fatal("expected change to be reported")
	}
	if out != "don’t" {
		t.Fatalf("unexpected repair %q", out)
	}
	if _, changed := Repair("don't"); changed {
		t.Fatal("expected no change for clean text")
	}
}

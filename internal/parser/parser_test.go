package parser

import "testing"

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := "---\nstatus: planned\npriority: high\ntags:\n  - architecture\n  - desktop\n---\n\n# My Spec Title\n\nSome content here.\n"
	fm, body := Parse(input)
	if fm.Status != "planned" {
		t.Errorf("status = %q, want planned", fm.Status)
	}
	if fm.Priority != "high" {
		t.Errorf("priority = %q, want high", fm.Priority)
	}
	if len(fm.Tags) != 2 || fm.Tags[0] != "architecture" || fm.Tags[1] != "desktop" {
		t.Errorf("tags = %v, want [architecture desktop]", fm.Tags)
	}
	if body != "# My Spec Title\n\nSome content here.\n" {
		t.Errorf("body = %q", body)
	}
}

func TestParse_DependsOnBothSpellings(t *testing.T) {
	fm, _ := Parse("---\nstatus: in-progress\ndepends_on:\n  - 001-init\n  - 002-setup\n---\n# Deps\n")
	if len(fm.DependsOn) != 2 || fm.DependsOn[0] != "001-init" || fm.DependsOn[1] != "002-setup" {
		t.Errorf("depends_on = %v", fm.DependsOn)
	}

	fm, _ = Parse("---\nstatus: planned\ndependsOn: [\"003\"]\ndepends_on: [\"004\"]\n---\n")
	if len(fm.DependsOn) != 1 || fm.DependsOn[0] != "003" {
		t.Errorf("camelCase should win, got %v", fm.DependsOn)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := "# Just a title\n\nNo frontmatter here."
	fm, body := Parse(input)
	if fm.Status != "" {
		t.Errorf("expected empty status, got %q", fm.Status)
	}
	if body != input {
		t.Errorf("body should be unchanged, got %q", body)
	}
}

func TestParse_StatusPresence(t *testing.T) {
	cases := []struct {
		in      string
		present bool
	}{
		{"---\nstatus: planned\n---\n", true},
		{"---\nstatus: \"\"\n---\n", true},
		{"---\nstatus:\n---\n", false},
		{"---\npriority: low\n---\n", false},
	}
	for _, tc := range cases {
		if fm, _ := Parse(tc.in); fm.HasStatus != tc.present {
			t.Errorf("Parse(%q).HasStatus = %v, want %v", tc.in, fm.HasStatus, tc.present)
		}
	}
}

func TestParse_DelimiterNotFirstLine(t *testing.T) {
	input := "\n---\nstatus: planned\n---\nbody"
	fm, body := Parse(input)
	if fm.Status != "" || body != input {
		t.Errorf("leading blank line should disable frontmatter: %+v %q", fm, body)
	}
}

func TestParse_UnclosedBlock(t *testing.T) {
	input := "---\nstatus: planned\nno closing line\n"
	fm, body := Parse(input)
	if fm.Status != "" || body != input {
		t.Errorf("unclosed block should fall back: %+v %q", fm, body)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	fm, body := Parse(input)
	if fm.Status != "" || fm.Extra != nil {
		t.Errorf("expected default frontmatter on invalid YAML, got %+v", fm)
	}
	if body != input {
		t.Errorf("body should be the original text on invalid YAML, got %q", body)
	}
}

func TestParse_WrongShapeFallback(t *testing.T) {
	input := "---\nstatus:\n  nested: true\n---\nBody\n"
	fm, body := Parse(input)
	if fm.Status != "" || body != input {
		t.Errorf("non-scalar status should fall back: %+v %q", fm, body)
	}
}

func TestParse_IndentedDelimiterIsNotClosing(t *testing.T) {
	input := "---\nstatus: planned\nnotes: |\n  ---\n---\n# Body\n"
	fm, body := Parse(input)
	if fm.Status != "planned" {
		t.Fatalf("status = %q, want planned", fm.Status)
	}
	if fm.Extra["notes"] != "---\n" {
		t.Errorf("notes = %#v", fm.Extra["notes"])
	}
	if body != "# Body\n" {
		t.Errorf("body = %q", body)
	}
}

func TestParse_UnknownKeysPreserved(t *testing.T) {
	fm, _ := Parse("---\nstatus: planned\nowner_team: platform\nreviewers:\n  - ana\n---\n")
	if fm.Extra["owner_team"] != "platform" {
		t.Errorf("extra owner_team = %v", fm.Extra["owner_team"])
	}
	rev, ok := fm.Extra["reviewers"].([]any)
	if !ok || len(rev) != 1 || rev[0] != "ana" {
		t.Errorf("extra reviewers = %#v", fm.Extra["reviewers"])
	}
}

func TestParse_ScalarTagsBecomeList(t *testing.T) {
	fm, _ := Parse("---\nstatus: planned\ntags: backend\n---\n")
	if len(fm.Tags) != 1 || fm.Tags[0] != "backend" {
		t.Errorf("tags = %v, want [backend]", fm.Tags)
	}
}

func TestParse_Transitions(t *testing.T) {
	fm, _ := Parse("---\nstatus: complete\ntransitions:\n  - from: planned\n    to: complete\n    at: '2025-01-02T03:04:05Z'\n---\n")
	if len(fm.Transitions) != 1 {
		t.Fatalf("transitions = %v", fm.Transitions)
	}
	tr := fm.Transitions[0]
	if tr.From != "planned" || tr.To != "complete" || tr.At != "2025-01-02T03:04:05Z" {
		t.Errorf("transition = %+v", tr)
	}
}

func TestFrontmatter_CreatedPrefersNewerKey(t *testing.T) {
	fm, _ := Parse("---\nstatus: planned\ncreated: '2024-01-01T00:00:00Z'\ncreated_at: '2025-06-01T12:00:00Z'\n---\n")
	c := fm.Created()
	if c == nil || c.Year() != 2025 {
		t.Errorf("created = %v, want 2025", c)
	}

	fm, _ = Parse("---\nstatus: planned\ncreated: '2024-01-01T00:00:00Z'\n---\n")
	c = fm.Created()
	if c == nil || c.Year() != 2024 {
		t.Errorf("created fallback = %v, want 2024", c)
	}
	if fm.CreatedLegacy != "2024-01-01T00:00:00Z" || fm.CreatedAt != "" {
		t.Errorf("raw created = %q created_at = %q", fm.CreatedLegacy, fm.CreatedAt)
	}
}

func TestFrontmatter_UnparseableTimestampDiscarded(t *testing.T) {
	fm, _ := Parse("---\nstatus: planned\ncreated: 2024-01-01\nupdatedAt: yesterday\n---\n")
	if fm.Created() != nil {
		t.Error("date-only created should not parse as RFC 3339")
	}
	if fm.Updated() != nil {
		t.Error("garbage updatedAt should be discarded")
	}
	if fm.UpdatedAt != "yesterday" {
		t.Errorf("raw updatedAt = %q", fm.UpdatedAt)
	}
}

func TestExtractTitle(t *testing.T) {
	if got := ExtractTitle("Some preamble\n\n# The Title\n\nBody content"); got != "The Title" {
		t.Errorf("title = %q, want The Title", got)
	}
	if got := ExtractTitle("## Only level two\n#NoSpace"); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
	if got := ExtractTitle("   #   Padded   \n"); got != "Padded" {
		t.Errorf("title = %q, want Padded", got)
	}
}

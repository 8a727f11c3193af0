package filter

import (
	"testing"
)

func TestAhoCorasick_Search(t *testing.T) {
	ac := NewAhoCorasick()
	ac.Build([]string{"he", "she", "his", "hers"})

	matches := ac.Search("ushers")
	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d: %v", len(matches), matches)
	}

	found := make(map[string]bool)
	for _, m := range matches {
		found[m.Word] = true
	}
	for _, w := range []string{"she", "he", "hers"} {
		if !found[w] {
			t.Errorf("Expected match for %q", w)
		}
	}
}

func TestAhoCorasick_HasMatch(t *testing.T) {
	ac := NewAhoCorasick()
	ac.Build([]string{"bad"})

	cases := []struct {
		text string
		want bool
	}{
		{"bad", true},
		{"badly", true},
		{"embadded", true},
		{"good", false},
		{"", false},
		{"BAD", true}, // case-insensitive via normalization
	}
	for _, c := range cases {
		if got := ac.HasMatch(c.text); got != c.want {
			t.Errorf("HasMatch(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestAhoCorasick_Rebuild(t *testing.T) {
	ac := NewAhoCorasick()
	ac.Build([]string{"old"})
	if !ac.HasMatch("old word") {
		t.Error("Expected match before rebuild")
	}

	ac.Build([]string{"new"})
	if ac.HasMatch("old word") {
		t.Error("Expected no match after rebuild")
	}
	if !ac.HasMatch("new word") {
		t.Error("Expected match after rebuild")
	}
}

func TestAhoCorasick_EmptyAutomaton(t *testing.T) {
	ac := NewAhoCorasick()
	ac.Build(nil)
	if ac.HasMatch("anything") {
		t.Error("Empty automaton must not match")
	}
	if got := ac.Search("anything"); len(got) != 0 {
		t.Errorf("Expected no matches, got %v", got)
	}
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"HELLO", "hello"},
		{"café", "cafe"},
		{"ÀÉÎÕÜ", "aeiou"},
		{"mixed Case Text", "mixed case text"},
	}
	for _, c := range cases {
		if got := NormalizeText(c.in); got != c.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

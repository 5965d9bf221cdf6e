package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"My Post: A/B Test?": "My Post- A-B Test",
		"  plain  ":          "plain",
		"":                   "",
		"a*b|c":              "a-bc",
	}
	for input, want := range cases {
		if got := SanitizeFileName(input); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "First   line\t here\n\n  \nSecond line\n"
	want := "First line here\nSecond line"
	if got := CollapseWhitespace(in); got != want {
		t.Fatalf("CollapseWhitespace = %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("short input should pass through, got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("héllo", 3); got != "hé" {
		t.Fatalf("rune boundary cut failed: %q", got)
	}
}

package llm

import "testing"

func TestNormalizeModelName(t *testing.T) {
	cases := map[string]string{
		"gemini-2.5-pro":        "gemini 2.5 pro",
		"Gemini_2.5_Pro":        "gemini 2.5 pro",
		"  Gemini  2.5   Pro  ": "gemini 2.5 pro",
		"gemini-2.5-flash-lite": "gemini 2.5 flash lite",
	}
	for in, want := range cases {
		if got := normalizeModelName(in); got != want {
			t.Errorf("normalizeModelName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsWhitelisted(t *testing.T) {
	w := NewWhitelist([]string{"gemini 2.5 pro", "gemini 2.5 flash"})

	allowed := []string{
		"gemini-2.5-pro",
		"gemini-2.5-pro-preview-06-05",
		"Gemini 2.5 Flash",
		"gemini-2.5-flash-lite",
	}
	for _, id := range allowed {
		if !w.IsWhitelisted(id) {
			t.Errorf("expected %q to be whitelisted", id)
		}
	}

	denied := []string{"gemini-2.0-flash", "gemini-1.5-pro", "gpt-4o", ""}
	for _, id := range denied {
		if w.IsWhitelisted(id) {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}

func TestEmptyWhitelistAdmitsNothing(t *testing.T) {
	w := NewWhitelist(nil)
	if w.IsWhitelisted("gemini-2.5-pro") {
		t.Fatal("empty whitelist must reject everything")
	}
}

func TestFilterCatalog(t *testing.T) {
	w := NewWhitelist([]string{"gemini 2.5"})
	models := []Descriptor{
		{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro"},
		{ID: "gemini-embedding-2.5", DisplayName: "Gemini Embedding 2.5"},
		{ID: "gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash"},
		{ID: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash"},
	}
	got := w.FilterCatalog(models)
	if len(got) != 2 {
		t.Fatalf("expected 2 models, got %d: %+v", len(got), got)
	}
	// Sorted case-insensitively by display name.
	if got[0].ID != "gemini-2.5-flash" || got[1].ID != "gemini-2.5-pro" {
		t.Fatalf("unexpected order: %q, %q", got[0].ID, got[1].ID)
	}
}

package llm

import (
	"errors"
	"testing"
)

func testResolver() *Resolver {
	return NewResolver(
		"gemini-2.5-flash",
		map[string]string{
			"gemini-2.5-pro":       "gemini-2.5-flash",
			"gemini-2.5-flash":     "gemini-2.5-flash-lite",
			"gemini-embedding-1.0": "",
		},
		[]string{"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
		[]string{"gemini-2.0-flash-live-001"},
	)
}

func TestResolveDefault(t *testing.T) {
	r := testResolver()
	for _, requested := range []string{"", "default", "Default", "  "} {
		if got := r.Resolve(requested); got.ID != "gemini-2.5-flash" {
			t.Fatalf("Resolve(%q) = %q, want primary", requested, got.ID)
		}
	}
	if got := r.Resolve("gemini-2.5-pro"); got.ID != "gemini-2.5-pro" {
		t.Fatalf("explicit model not passed through: %q", got.ID)
	}
}

func TestIsLiveModel(t *testing.T) {
	r := testResolver()
	cases := map[string]bool{
		"gemini-2.0-flash-live-001":               true,
		"gemini-2.5-flash-preview-native-audio":   true,
		"gemini-live-2.5-flash-preview":           true,
		"gemini-2.5-flash-native-audio-dialog":    true,
		"gemini-2.5-flash":                        false,
		"gemini-2.5-pro":                          false,
	}
	for id, want := range cases {
		if got := r.IsLiveModel(id); got != want {
			t.Errorf("IsLiveModel(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestNextFallbackExplicitChain(t *testing.T) {
	r := testResolver()
	next := r.NextFallback("gemini-2.5-pro")
	if next == nil || next.ID != "gemini-2.5-flash" {
		t.Fatalf("expected chain hop to flash, got %+v", next)
	}
	next = r.NextFallback("gemini-2.5-flash")
	if next == nil || next.ID != "gemini-2.5-flash-lite" {
		t.Fatalf("expected chain hop to flash-lite, got %+v", next)
	}
	if next := r.NextFallback("gemini-2.5-flash-lite"); next != nil {
		t.Fatalf("expected exhausted chain, got %+v", next)
	}
}

func TestExplicitEmptyEntryPinsModel(t *testing.T) {
	r := testResolver()
	if next := r.NextFallback("gemini-embedding-1.0"); next != nil {
		t.Fatalf("pinned model must never fall back, got %+v", next)
	}
	quota := &UpstreamError{StatusCode: 429, Message: "quota exceeded"}
	if r.ShouldFallback(quota, "gemini-embedding-1.0") {
		t.Fatal("pinned model must not fall back even on quota errors")
	}
}

func TestPositionalFallbackForUnknownModel(t *testing.T) {
	// Not in the explicit chain but in the priority list.
	r := NewResolver("gemini-2.5-flash", nil,
		[]string{"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"}, nil)
	next := r.NextFallback("gemini-2.5-pro")
	if next == nil || next.ID != "gemini-2.5-flash" {
		t.Fatalf("expected positional hop, got %+v", next)
	}
	if next := r.NextFallback("gemini-2.5-flash-lite"); next != nil {
		t.Fatalf("last positional model must not fall back, got %+v", next)
	}
	if next := r.NextFallback("unknown-model"); next != nil {
		t.Fatalf("model absent from priority list must not fall back, got %+v", next)
	}
}

func TestShouldFallbackClassification(t *testing.T) {
	r := testResolver()
	model := "gemini-2.5-pro"

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"quota status", &UpstreamError{StatusCode: 429, Message: "slow down"}, true},
		{"quota message", &UpstreamError{Message: "RPD limit exceeded for model"}, true},
		{"rate limit message", errors.New("rate limit hit"), true},
		{"technical 404", &UpstreamError{StatusCode: 404, Message: "model not found"}, true},
		{"technical 503", &UpstreamError{StatusCode: 503, Message: "overloaded"}, true},
		{"connection message", errors.New("connection reset by peer"), true},
		{"websocket message", errors.New("websocket handshake failed"), true},
		{"content policy", &UpstreamError{StatusCode: 200, Message: "blocked by safety settings"}, false},
		{"nil error", nil, false},
	}
	for _, tc := range cases {
		if got := r.ShouldFallback(tc.err, model); got != tc.want {
			t.Errorf("%s: ShouldFallback = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestErrorClassifiers(t *testing.T) {
	if !IsQuotaError(&UpstreamError{StatusCode: 429}) {
		t.Fatal("429 must classify as quota")
	}
	if !IsQuotaError(errors.New("Too Many Requests")) {
		t.Fatal("quota marker match must be case-insensitive")
	}
	if IsQuotaError(errors.New("model not found")) {
		t.Fatal("technical error misclassified as quota")
	}
	if !IsTechnicalError(&UpstreamError{StatusCode: 400, Message: "bad request"}) {
		t.Fatal("400 must classify as technical")
	}
	if !IsTechnicalError(errors.New("dial tcp: i/o timeout")) {
		t.Fatal("timeout marker must classify as technical")
	}
	if IsTechnicalError(errors.New("response blocked")) {
		t.Fatal("unrelated error misclassified as technical")
	}
}

package llm

import "strings"

// Descriptor describes a concrete model the router has settled on.
type Descriptor struct {
	ID                         string `json:"id"`
	DisplayName                string `json:"display_name"`
	IsLive                     bool   `json:"is_live"`
	SupportsSystemInstructions bool   `json:"supports_system_instructions"`
}

var liveMarkers = []string{"native-audio-dialog", "native-audio", "live"}

func hasLiveMarker(modelID string) bool {
	id := strings.ToLower(modelID)
	for _, m := range liveMarkers {
		if strings.Contains(id, m) {
			return true
		}
	}
	return false
}

// Resolver maps requested model ids to concrete models and answers the two
// fallback questions: "should I fall back after this error" and "what is the
// next model to try". The retry loop itself belongs to the caller; the caller
// must stop once NextFallback returns nil or ShouldFallback says no.
type Resolver struct {
	primary  string
	fallback map[string]string
	priority []string
	live     map[string]struct{}
}

func NewResolver(primary string, fallback map[string]string, priority, liveModels []string) *Resolver {
	live := make(map[string]struct{}, len(liveModels))
	for _, id := range liveModels {
		live[id] = struct{}{}
	}
	chain := make(map[string]string, len(fallback))
	for k, v := range fallback {
		chain[k] = v
	}
	return &Resolver{
		primary:  primary,
		fallback: chain,
		priority: append([]string(nil), priority...),
		live:     live,
	}
}

// Resolve returns the model to use for a request. Empty or "default" means
// the configured primary; anything else passes through unvalidated — gating
// user-chosen models is the whitelist's job, not this layer's.
func (r *Resolver) Resolve(requested string) Descriptor {
	id := strings.TrimSpace(requested)
	if id == "" || strings.EqualFold(id, "default") {
		id = r.primary
	}
	return r.describe(id)
}

func (r *Resolver) describe(id string) Descriptor {
	live := r.IsLiveModel(id)
	return Descriptor{
		ID:                         id,
		DisplayName:                displayName(id),
		IsLive:                     live,
		SupportsSystemInstructions: !live,
	}
}

func displayName(id string) string {
	name := strings.NewReplacer("-", " ", "_", " ").Replace(id)
	words := strings.Fields(name)
	for i, w := range words {
		if len(w) > 0 && w[0] >= 'a' && w[0] <= 'z' {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// IsLiveModel reports whether the model must be routed over the streaming
// transport. The plain request/response path rejects live models upstream.
func (r *Resolver) IsLiveModel(modelID string) bool {
	if _, ok := r.live[modelID]; ok {
		return true
	}
	return hasLiveMarker(modelID)
}

// HasFallback reports whether any fallback exists for the model. An explicit
// empty chain entry pins the model absolutely: the user chose it, respect it.
// The positional priority list is only consulted for models the chain has
// never heard of.
func (r *Resolver) HasFallback(modelID string) bool {
	if next, ok := r.fallback[modelID]; ok {
		return next != ""
	}
	return r.positionalNext(modelID) != ""
}

// ShouldFallback decides whether an upstream error warrants trying the next
// model. Errors that are neither quota nor technical are surfaced unchanged.
func (r *Resolver) ShouldFallback(err error, modelID string) bool {
	if err == nil {
		return false
	}
	if !r.HasFallback(modelID) {
		return false
	}
	return IsQuotaError(err) || IsTechnicalError(err)
}

// NextFallback returns the next model to try, or nil when the chain is
// exhausted. The explicit chain always wins over the positional list.
func (r *Resolver) NextFallback(modelID string) *Descriptor {
	if next, ok := r.fallback[modelID]; ok {
		if next == "" {
			return nil
		}
		d := r.describe(next)
		return &d
	}
	if next := r.positionalNext(modelID); next != "" {
		d := r.describe(next)
		return &d
	}
	return nil
}

func (r *Resolver) positionalNext(modelID string) string {
	for i, id := range r.priority {
		if id == modelID && i+1 < len(r.priority) {
			return r.priority[i+1]
		}
	}
	return ""
}

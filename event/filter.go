package event

// Filter selects events from a relay subscription or query. Zero-valued
// fields are omitted from the wire encoding and match everything.
type Filter struct {
	// IDs matches specific event IDs.
	IDs []string `json:"ids,omitempty"`
	// Authors matches the signing public key (for gift wraps this is the
	// ephemeral key, so it is rarely useful for messaging).
	Authors []string `json:"authors,omitempty"`
	// Kinds matches event kinds.
	Kinds []int `json:"kinds,omitempty"`
	// Recipients matches recipient-reference tags ("#p").
	Recipients []string `json:"#p,omitempty"`
	// Since matches events created at or after this unix timestamp.
	Since *int64 `json:"since,omitempty"`
	// Until matches events created before this unix timestamp.
	Until *int64 `json:"until,omitempty"`
	// Limit caps the number of stored events returned.
	Limit int `json:"limit,omitempty"`
}

// Matches reports whether an event satisfies the filter. Relays apply
// filters server-side; this is used for local checks and tests.
func (f Filter) Matches(e *Event) bool {
	if len(f.IDs) > 0 && !contains(f.IDs, e.ID) {
		return false
	}
	if len(f.Authors) > 0 && !contains(f.Authors, e.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, e.Kind) {
		return false
	}
	if len(f.Recipients) > 0 {
		tag, ok := e.Tags.First(TagRecipient)
		if !ok || !contains(f.Recipients, tag.Value()) {
			return false
		}
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && e.CreatedAt >= *f.Until {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

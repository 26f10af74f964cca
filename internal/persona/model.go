package persona

// Favorability bounds. Values outside this range are never applied.
const (
	FavorabilityMin = 0
	FavorabilityMax = 100

	// DefaultFavorability is the starting disposition for a new persona.
	DefaultFavorability = 50
)

// Persona is a named AI character profile. Favorability is the only field the
// chat subsystem reads or writes; Profile is an opaque bag of descriptive
// fields rendered verbatim into prompts and never interpreted.
type Persona struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Favorability int            `json:"favorability"`
	AvatarImage  string         `json:"avatarImage,omitempty"`
	Profile      map[string]any `json:"profile,omitempty"`
}

// ValidFavorability reports whether v lies in [FavorabilityMin, FavorabilityMax].
func ValidFavorability(v int) bool {
	return v >= FavorabilityMin && v <= FavorabilityMax
}

// Clone returns a copy of the persona with its own profile map. Nested values
// are shared; callers treat the profile as read-only.
func (p *Persona) Clone() *Persona {
	if p == nil {
		return nil
	}
	out := *p
	if p.Profile != nil {
		out.Profile = make(map[string]any, len(p.Profile))
		for k, v := range p.Profile {
			out.Profile[k] = v
		}
	}
	return &out
}

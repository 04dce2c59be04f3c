package domain

type PresetID string

// TeamPreset is a named snapshot of a roster. Members is owned by the
// preset and never shared with the live roster.
type TeamPreset struct {
	ID      PresetID `json:"id"`
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// Clone returns a copy whose Members slice does not alias p.Members.
func (p TeamPreset) Clone() TeamPreset {
	members := make([]Member, len(p.Members))
	copy(members, p.Members)
	p.Members = members
	return p
}

package core

import (
	"errors"

	"github.com/samber/lo"

	"github.com/dkeye/Standup/internal/domain"
)

// Roster holds the members of a session and the team presets saved from it.
// Not threadsafe; the owning session serializes access.
type Roster struct {
	newID   func() string
	members []domain.Member
	presets []domain.TeamPreset
}

func NewRoster(newID func() string) *Roster {
	return &Roster{newID: newID}
}

// Add appends a new member. An empty name is a no-op and reports false.
func (r *Roster) Add(name string, role domain.Role, timeLimit int) (domain.Member, bool, error) {
	m, err := domain.NewMember(domain.MemberID(r.newID()), name, role, timeLimit)
	if errors.Is(err, domain.ErrNameEmpty) {
		return domain.Member{}, false, nil
	}
	if err != nil {
		return domain.Member{}, false, err
	}
	r.members = append(r.members, m)
	return m, true, nil
}

// Remove drops the member with id. Reports whether it was present.
func (r *Roster) Remove(id domain.MemberID) bool {
	before := len(r.members)
	r.members = lo.Reject(r.members, func(m domain.Member, _ int) bool { return m.ID == id })
	return len(r.members) != before
}

func (r *Roster) Get(id domain.MemberID) (domain.Member, bool) {
	return lo.Find(r.members, func(m domain.Member) bool { return m.ID == id })
}

// Members returns a copy of the roster in insertion order.
func (r *Roster) Members() []domain.Member {
	out := make([]domain.Member, len(r.members))
	copy(out, r.members)
	return out
}

// IDs returns the set of member ids currently on the roster.
func (r *Roster) IDs() map[domain.MemberID]struct{} {
	return lo.SliceToMap(r.members, func(m domain.Member) (domain.MemberID, struct{}) {
		return m.ID, struct{}{}
	})
}

func (r *Roster) Len() int { return len(r.members) }

// SavePreset snapshots the roster under a new preset. An empty name is a
// no-op and reports false.
func (r *Roster) SavePreset(name string) (domain.TeamPreset, bool, error) {
	name, err := domain.CleanName(name)
	if errors.Is(err, domain.ErrNameEmpty) {
		return domain.TeamPreset{}, false, nil
	}
	if err != nil {
		return domain.TeamPreset{}, false, err
	}
	p := domain.TeamPreset{
		ID:      domain.PresetID(r.newID()),
		Name:    name,
		Members: r.Members(),
	}
	r.presets = append(r.presets, p)
	return p.Clone(), true, nil
}

// LoadPreset replaces the roster with the preset's members. It does not merge.
func (r *Roster) LoadPreset(id domain.PresetID) (domain.TeamPreset, error) {
	p, ok := lo.Find(r.presets, func(p domain.TeamPreset) bool { return p.ID == id })
	if !ok {
		return domain.TeamPreset{}, domain.ErrPresetNotFound
	}
	r.members = p.Clone().Members
	return p.Clone(), nil
}

// Presets returns copies of all saved presets in save order.
func (r *Roster) Presets() []domain.TeamPreset {
	return lo.Map(r.presets, func(p domain.TeamPreset, _ int) domain.TeamPreset { return p.Clone() })
}

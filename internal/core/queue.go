package core

import (
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/dkeye/Standup/internal/domain"
)

// Queue is the speaking order. It is rebuilt from the roster per session
// and never persisted.
type Queue struct {
	members []domain.Member
}

func NewQueue() *Queue { return &Queue{} }

// Build sets the order to the roster order.
func (q *Queue) Build(roster []domain.Member) {
	q.members = append([]domain.Member(nil), roster...)
}

// Shuffle sets the order to a uniform random permutation of roster
// (Fisher-Yates via rand.Shuffle).
func (q *Queue) Shuffle(roster []domain.Member, rng *rand.Rand) {
	q.Build(roster)
	rng.Shuffle(len(q.members), func(i, j int) {
		q.members[i], q.members[j] = q.members[j], q.members[i]
	})
}

// RotateToEnd moves the front member to the back. No-op below two members.
func (q *Queue) RotateToEnd() {
	if len(q.members) < 2 {
		return
	}
	first := q.members[0]
	copy(q.members, q.members[1:])
	q.members[len(q.members)-1] = first
}

// Remove drops the member from the queue only.
func (q *Queue) Remove(id domain.MemberID) bool {
	before := len(q.members)
	q.members = lo.Reject(q.members, func(m domain.Member, _ int) bool { return m.ID == id })
	return len(q.members) != before
}

// Retain drops every entry whose id is not in keep.
func (q *Queue) Retain(keep map[domain.MemberID]struct{}) {
	q.members = lo.Filter(q.members, func(m domain.Member, _ int) bool {
		_, ok := keep[m.ID]
		return ok
	})
}

func (q *Queue) Members() []domain.Member {
	out := make([]domain.Member, len(q.members))
	copy(out, q.members)
	return out
}

func (q *Queue) Len() int { return len(q.members) }


package core

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/matryer/is"

	"github.com/dkeye/Standup/internal/domain"
)

func members(names ...string) []domain.Member {
	out := make([]domain.Member, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Member{ID: domain.MemberID(n), Name: n, Role: domain.RoleDeveloper, TimeLimit: 120})
	}
	return out
}

func ids(ms []domain.Member) []domain.MemberID {
	out := make([]domain.MemberID, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestRotateToEnd(t *testing.T) {
	is := is.New(t)
	q := NewQueue()
	q.Build(members("a", "b", "c", "d"))
	before := q.Members()

	q.RotateToEnd()
	after := q.Members()

	is.Equal(after[len(after)-1], before[0])
	is.Equal(after[:len(after)-1], before[1:])
}

func TestRotateToEndShortQueue(t *testing.T) {
	is := is.New(t)
	q := NewQueue()
	q.RotateToEnd()
	is.Equal(q.Len(), 0)

	q.Build(members("a"))
	q.RotateToEnd()
	is.Equal(ids(q.Members()), []domain.MemberID{"a"})
}

func TestShuffleIsPermutation(t *testing.T) {
	is := is.New(t)
	roster := members("a", "b", "c", "d", "e", "f")
	q := NewQueue()
	for seed := range uint64(50) {
		q.Shuffle(roster, rand.New(rand.NewPCG(seed, seed+1)))
		got := ids(q.Members())
		slices.Sort(got)
		is.Equal(got, ids(roster))
	}
}

func TestShuffleDoesNotTouchRoster(t *testing.T) {
	is := is.New(t)
	roster := members("a", "b", "c")
	q := NewQueue()
	q.Shuffle(roster, rand.New(rand.NewPCG(7, 7)))
	is.Equal(ids(roster), []domain.MemberID{"a", "b", "c"})
}

// Every permutation of three members shows up with roughly equal frequency.
func TestShuffleCoversAllOrders(t *testing.T) {
	is := is.New(t)
	roster := members("a", "b", "c")
	q := NewQueue()
	rng := rand.New(rand.NewPCG(1, 2))
	counts := map[string]int{}
	const rounds = 6000
	for range rounds {
		q.Shuffle(roster, rng)
		key := ""
		for _, id := range ids(q.Members()) {
			key += string(id)
		}
		counts[key]++
	}
	is.Equal(len(counts), 6)
	for order, n := range counts {
		if n < rounds/6*8/10 || n > rounds/6*12/10 {
			t.Errorf("order %s seen %d times", order, n)
		}
	}
}

func TestQueueRemoveAndRetain(t *testing.T) {
	is := is.New(t)
	q := NewQueue()
	q.Build(members("a", "b", "c"))

	is.True(q.Remove("b"))
	is.True(!q.Remove("b"))
	is.Equal(ids(q.Members()), []domain.MemberID{"a", "c"})

	q.Retain(map[domain.MemberID]struct{}{"c": {}})
	is.Equal(ids(q.Members()), []domain.MemberID{"c"})
}

package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestNewMemberDefaults(t *testing.T) {
	is := is.New(t)
	m, err := NewMember("m1", "  Alice ", "", 0)
	is.NoErr(err)
	is.Equal(m.Name, "Alice")
	is.Equal(m.Role, RoleDeveloper)
	is.Equal(m.TimeLimit, DefaultTimeLimit)
}

func TestNewMemberValidation(t *testing.T) {
	is := is.New(t)
	_, err := NewMember("m1", "   ", RoleQA, 60)
	is.True(errors.Is(err, ErrNameEmpty))

	_, err = NewMember("m1", strings.Repeat("x", MaxNameLen+1), RoleQA, 60)
	is.True(errors.Is(err, ErrNameTooLong))

	m, err := NewMember("m1", strings.Repeat("ж", MaxNameLen), RoleQA, 60)
	is.NoErr(err)
	is.Equal(m.TimeLimit, 60)
}

func TestParseRole(t *testing.T) {
	is := is.New(t)
	r, err := ParseRole("Product Manager")
	is.NoErr(err)
	is.Equal(r, RoleProductManager)

	r, err = ParseRole("")
	is.NoErr(err)
	is.Equal(r, DefaultRole)

	_, err = ParseRole("Manager")
	is.True(errors.Is(err, ErrUnknownRole))
}

func TestPresetCloneDoesNotAlias(t *testing.T) {
	is := is.New(t)
	p := TeamPreset{ID: "p1", Name: "TeamA", Members: []Member{{ID: "a", Name: "Alice"}}}
	c := p.Clone()
	c.Members[0].Name = "Mallory"
	is.Equal(p.Members[0].Name, "Alice")
}

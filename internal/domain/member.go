// Package domain contains entities without logic, just meta-data
package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLen = 36

	// DefaultTimeLimit is the speaking time in seconds given to a member
	// added without one.
	DefaultTimeLimit = 120
)

type MemberID string

// Member is a participant of the standup. It never changes after creation;
// editing means removing and adding again.
type Member struct {
	ID        MemberID `json:"id"`
	Name      string   `json:"name"`
	Role      Role     `json:"role"`
	TimeLimit int      `json:"time_limit"`
}

// NewMember validates the name and fills defaults for role and time limit.
func NewMember(id MemberID, name string, role Role, timeLimit int) (Member, error) {
	name, err := CleanName(name)
	if err != nil {
		return Member{}, err
	}
	if role == "" {
		role = DefaultRole
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	return Member{ID: id, Name: name, Role: role, TimeLimit: timeLimit}, nil
}

// CleanName trims the name and checks its length.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

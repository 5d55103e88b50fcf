// Package domain contains core domain types for the EeeBee assistant.
package domain

import (
	"strconv"
)

// Role is the kind of account that authenticated.
type Role int

const (
	// RoleStudent is a learner account (UserType 3).
	RoleStudent Role = iota
	// RoleTeacher is a teacher account (UserType 2).
	RoleTeacher
)

// UserType returns the numeric user type the auth endpoint expects.
func (r Role) UserType() int {
	if r == RoleTeacher {
		return 2
	}
	return 3
}

func (r Role) String() string {
	if r == RoleTeacher {
		return "teacher"
	}
	return "student"
}

// ParseRole maps "teacher"/"student" to a Role. Anything else is a student.
func ParseRole(s string) Role {
	if s == "teacher" {
		return RoleTeacher
	}
	return RoleStudent
}

// Identity is who a session belongs to.
type Identity struct {
	UserID     int64
	Name       string
	OrgCode    string
	Role       Role
	SubjectID  int
	TopicName  string
	BranchName string
	English    bool
}

// IsTeacher reports whether the identity has the teacher role.
func (i Identity) IsTeacher() bool {
	return i.Role == RoleTeacher
}

// Key returns a stable string form of the user id for logs and file names.
func (i Identity) Key() string {
	return strconv.FormatInt(i.UserID, 10)
}

// Profile is everything the auth endpoint returns for one login.
type Profile struct {
	Identity     Identity
	Batches      []Batch
	Concepts     []Concept
	WeakConcepts []Concept
}

// IsWeak reports whether conceptID is in the profile's weak list.
func (p *Profile) IsWeak(conceptID int) bool {
	for _, c := range p.WeakConcepts {
		if c.ConceptID == conceptID {
			return true
		}
	}
	return false
}

// Credentials are the login form fields.
type Credentials struct {
	OrgCode  string
	LoginID  string
	Password string
	TopicID  int
	Role     Role
	English  bool
}

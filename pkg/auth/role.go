package auth

import "strings"

// Role is a canonical account role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"

	// RoleUnknown is returned by Canonicalize for anything it does not recognise.
	RoleUnknown Role = ""
)

// roleAliases maps every accepted spelling to its canonical role.
var roleAliases = map[string]Role{
	"admin":   RoleAdmin,
	"teacher": RoleTeacher,
	"staff":   RoleTeacher,
	"student": RoleStudent,
}

// Canonicalize normalizes a role name, resolving aliases ("staff" is a teacher).
// Matching is case-insensitive and ignores surrounding whitespace.
func Canonicalize(role string) Role {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(role))]; ok {
		return r
	}
	return RoleUnknown
}

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

func (r Role) String() string {
	return string(r)
}

// SameRole reports whether two role names refer to the same canonical role.
// Unknown roles never match, not even each other.
func SameRole(a, b string) bool {
	ca := Canonicalize(a)
	return ca != RoleUnknown && ca == Canonicalize(b)
}

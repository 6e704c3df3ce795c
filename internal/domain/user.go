package domain

import "fmt"

// Role controls which resource fields an actor may write directly.
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleEditor    Role = "editor"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleVolunteer, RoleEditor, RoleAdmin:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role: %q", raw)
	}
}

// CanReview reports whether the role may approve or reject drafts and
// change requests.
func (r Role) CanReview() bool {
	return r == RoleEditor || r == RoleAdmin
}

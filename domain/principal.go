package domain

// Role determines which tasks a principal may see and mutate.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Principal is the authenticated identity driving a request. The role is
// derived, never stored: it is recomputed from the username on every
// authentication state change.
type Principal struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// DeriveRole maps a username to a role. The reserved username is the single
// trust-boundary input; swapping this predicate for a real role claim from the
// identity provider leaves every caller untouched.
func DeriveRole(username, reservedAdmin string) Role {
	if username != "" && username == reservedAdmin {
		return RoleAdmin
	}
	return RoleMember
}

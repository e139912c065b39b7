package auth

// Principal represents a user with resolved roles and permissions.
type Principal struct {
	User        *User
	Roles       map[RoleName]struct{}
	Permissions map[string]struct{}
}

// NewPrincipal flattens the user's roles and their permissions.
func NewPrincipal(user *User) Principal {
	p := Principal{
		User:        user,
		Roles:       make(map[RoleName]struct{}),
		Permissions: make(map[string]struct{}),
	}
	if user == nil {
		return p
	}
	for _, r := range user.Roles {
		if r.DeletedAt != nil {
			continue
		}
		p.Roles[r.Name] = struct{}{}
		for _, perm := range r.Permissions {
			if perm.DeletedAt != nil {
				continue
			}
			p.Permissions[perm.Name] = struct{}{}
		}
	}
	return p
}

// HasPermission reports whether the principal can execute the named action.
func (p Principal) HasPermission(name string) bool {
	_, ok := p.Permissions[name]
	return ok
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role RoleName) bool {
	_, ok := p.Roles[role]
	return ok
}

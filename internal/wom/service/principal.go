package service

// Principal is the acting identity, passed explicitly into every operation.
// It carries everything the core needs from the authentication layer, so
// services never look permissions up ambiently.
type Principal struct {
	ID          string
	Name        string
	Roles       []string
	Permissions []string
}

func (p Principal) HasRole(code string) bool {
	for _, r := range p.Roles {
		if r == code {
			return true
		}
	}
	return false
}

// Can reports whether the principal holds a permission. "*" grants all.
func (p Principal) Can(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission || perm == "*" {
			return true
		}
	}
	return false
}

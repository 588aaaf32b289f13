package auth

import "warehouse.GO/model/entity"

// Principal is the authenticated caller of a request.
type Principal struct {
	ID          uint
	Username    string
	Role        string
	Permissions entity.Permissions
	// Static is set for the shared API key, which acts as an administrator.
	Static bool
}

// FromEmployee builds the principal of a logged-in employee.
func FromEmployee(e *entity.Employee) *Principal {
	return &Principal{ID: e.ID, Username: e.Username, Role: e.Role, Permissions: e.Granted()}
}

func (p *Principal) IsAdmin() bool {
	return p != nil && (p.Static || p.Role == entity.RoleAdmin)
}

// Allows is the single authorization decision: administrators may do
// anything, everyone else needs the named permission.
func Allows(p *Principal, perm string) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return p.Permissions[perm]
}

// ActorID is the principal's employee id, or nil for the static key.
func (p *Principal) ActorID() *uint {
	if p == nil || p.ID == 0 {
		return nil
	}
	id := p.ID
	return &id
}

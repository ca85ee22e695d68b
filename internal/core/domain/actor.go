package domain

// Capability is a single permission in the access policy.
type Capability string

const (
	CapSubmit     Capability = "submit"
	CapViewAll    Capability = "view_all"
	CapEditAny    Capability = "edit_any"
	CapAdminister Capability = "administer"
)

var roleCapabilities = map[Role][]Capability{
	RoleWorker:  {CapSubmit},
	RoleManager: {CapSubmit, CapViewAll, CapEditAny, CapAdminister},
}

// Actor is the authenticated identity performing a request. It is passed
// explicitly into every service call.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Can reports whether the actor's role grants c. Unknown roles grant nothing.
func (a Actor) Can(c Capability) bool {
	for _, have := range roleCapabilities[a.Role] {
		if have == c {
			return true
		}
	}
	return false
}

func (a Actor) CanSubmit() bool     { return a.Can(CapSubmit) }
func (a Actor) CanViewAll() bool    { return a.Can(CapViewAll) }
func (a Actor) CanEditAny() bool    { return a.Can(CapEditAny) }
func (a Actor) CanAdminister() bool { return a.Can(CapAdminister) }

// Authenticated reports whether the actor carries a usable identity and role.
func (a Actor) Authenticated() bool {
	return a.ID > 0 && a.Role.Valid()
}

// Require returns ErrForbidden unless the actor holds c.
func (a Actor) Require(c Capability) error {
	if !a.Authenticated() || !a.Can(c) {
		return ErrForbidden
	}
	return nil
}

// WorkerScope returns the worker id a listing must be restricted to.
// Actors who can view everything keep the requested filter (0 = all workers);
// everyone else is pinned to their own id whatever they asked for.
func (a Actor) WorkerScope(requested int64) int64 {
	if a.CanViewAll() {
		return requested
	}
	return a.ID
}

// OwnerScope returns the owner id a mutation must match, or 0 when the actor
// may touch any entry.
func (a Actor) OwnerScope() int64 {
	if a.CanEditAny() {
		return 0
	}
	return a.ID
}

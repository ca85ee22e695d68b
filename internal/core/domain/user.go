package domain

// Role identifies what an authenticated actor is allowed to do.
type Role string

const (
	RoleWorker  Role = "worker"
	RoleManager Role = "manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleWorker || r == RoleManager
}

// User is a person who logs hours. Managers are users too.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	PayRate      Rate   `json:"pay_rate"`
}

// Customer is the party an engagement is billed to.
type Customer struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	PayRate Rate   `json:"pay_rate"`
}

package auth

import "time"

// Role partitions the four portals.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleCashier    Role = "cashier"
	RoleCustomer   Role = "customer"
	RoleSupervisor Role = "supervisor"
)

// User is an account that can sign in to one of the portals.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the authenticated identity carried in request context.
type Principal struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

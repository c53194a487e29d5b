package user

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Public is the projection handlers return; it cannot carry the hash.
type Public struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) Public() Public {
	return Public{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Identity is the authenticated actor for one request, derived from a
// verified token. Request scoped, never persisted.
type Identity struct {
	ID    int64
	Email string
	Role  string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// UpdateUserRequest carries the optional mutable fields of a user.
// Pointer fields distinguish "absent" from "zero value".
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Role     *string `json:"role" binding:"omitempty,oneof=user admin"`
	Password *string `json:"password" binding:"omitempty,min=8,max=128"`
}

// Empty reports whether the payload carries no recognized field.
func (r UpdateUserRequest) Empty() bool {
	return r.Name == nil && r.Email == nil && r.Role == nil && r.Password == nil
}

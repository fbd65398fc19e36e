package model

import (
	"strings"
	"time"

	"sportshub-payments/internal/domain"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAdvertiser Role = "advertiser"
	RolePatron     Role = "patron"
)

// User is the read-only view of a payer owned by the accounts domain.
type User struct {
	ID        string
	Email     string
	Name      string
	Phone     *string
	Role      Role
	CreatedAt time.Time
}

func NewUser(id, email, name string, role Role) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if role == "" {
		role = RolePatron
	}
	return &User{ID: id, Email: email, Name: name, Role: role, CreatedAt: time.Now()}, nil
}

func (u *User) IsZero() bool  { return u == nil || u.ID == "" }
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

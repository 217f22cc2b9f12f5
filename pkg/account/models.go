package account

import (
	"fmt"
	"strings"
	"time"
)

// UserType partitions the account namespace. Usernames are unique per user type.
type UserType string

const (
	UserTypeSystem   UserType = "sys_user"
	UserTypeCustomer UserType = "customer"
)

// ParseUserType accepts the known user types (case-insensitive)
func ParseUserType(s string) (UserType, error) {
	switch UserType(strings.ToLower(strings.TrimSpace(s))) {
	case UserTypeSystem:
		return UserTypeSystem, nil
	case UserTypeCustomer:
		return UserTypeCustomer, nil
	default:
		return "", fmt.Errorf("unsupported user type: %s (supported: %s, %s)", s, UserTypeSystem, UserTypeCustomer)
	}
}

// Account is the persisted user record. Password holds the digest, never plaintext.
type Account struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	UserType       UserType   `json:"user_type"`
	Password       string     `json:"password"`
	Salt           string     `json:"salt"`
	DepartmentID   int64      `json:"department_id"`
	CreatedAt      time.Time  `json:"created_at"`
	LastModifiedAt time.Time  `json:"last_modified_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// AccountInput is the caller payload for create and update.
// Password is plaintext and only lives for the duration of the request.
type AccountInput struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	RoleIDs  []int64 `json:"role_ids"`
}

// AccountView is the read projection of an account with its active roles
type AccountView struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	UserType       UserType  `json:"user_type"`
	DepartmentID   int64     `json:"department_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
	Roles          []Role    `json:"roles"`
	RoleIDs        []int64   `json:"role_ids,omitempty"`
}

// Role represents a role in the catalog
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Binding associates one account with one role inside a user type.
// A binding with ID 0 has not been persisted yet.
type Binding struct {
	ID       int64    `json:"id"`
	UserID   int64    `json:"user_id"`
	RoleID   int64    `json:"role_id"`
	UserType UserType `json:"user_type"`
	Deleted  bool     `json:"deleted"`
}

func newView(a Account, roles []Role) AccountView {
	return AccountView{
		ID:             a.ID,
		Username:       a.Username,
		UserType:       a.UserType,
		DepartmentID:   a.DepartmentID,
		CreatedAt:      a.CreatedAt,
		LastModifiedAt: a.LastModifiedAt,
		Roles:          roles,
	}
}

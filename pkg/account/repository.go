package account

import (
	"context"
	"errors"
)

var (
	// ErrAccountNotFound is returned by writes that matched no active account
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount is returned when (username, user type) is already taken
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrRoleNotFound is returned when a binding references an unknown role
	ErrRoleNotFound = errors.New("role not found")
)

// AccountRepository defines account and role catalog storage operations
type AccountRepository interface {
	// FindAccountByUsername returns nil, nil when no active account matches
	FindAccountByUsername(ctx context.Context, username string, userType UserType) (*Account, error)
	// GetAccountForUpdate returns nil, nil when no active account matches.
	// Inside a transaction the row stays locked until commit where the store supports it.
	GetAccountForUpdate(ctx context.Context, id int64) (*Account, error)
	// GetAccountView returns nil, nil when no active account matches
	GetAccountView(ctx context.Context, id int64) (*AccountView, error)
	FindAccounts(ctx context.Context, userType UserType) ([]AccountView, error)
	InsertAccount(ctx context.Context, account *Account) error
	UpdateAccount(ctx context.Context, account *Account) error
	DeleteAccount(ctx context.Context, id int64) error

	FindRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, name string) (Role, error)
}

// BindingRepository defines role binding storage operations
type BindingRepository interface {
	// FindBindings returns the active bindings of one account within a user type
	FindBindings(ctx context.Context, userID int64, userType UserType) ([]Binding, error)
	InsertBindings(ctx context.Context, bindings []Binding) error
	// BatchUpsertOrSoftDelete inserts bindings without an ID and writes the
	// deleted flag of bindings that have one, batchSize rows per round trip.
	BatchUpsertOrSoftDelete(ctx context.Context, bindings []Binding, batchSize int) error
	HardDeleteBindings(ctx context.Context, userID int64, userType UserType) error
}

// Repository is everything the account service reads and writes
type Repository interface {
	AccountRepository
	BindingRepository
}

// TxRunner runs fn inside one transaction. fn receives a Repository bound to
// that transaction; a returned error or panic rolls every write back.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Store is a Repository that can also open transactions
type Store interface {
	Repository
	TxRunner
}

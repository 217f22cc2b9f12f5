package account

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	pkgerrors "github.com/tendant/simple-account/pkg/errors"
)

// DefaultDepartmentID is stamped on every account when credentials are prepared
const DefaultDepartmentID int64 = 0

// AccountService manages accounts and reconciles their role bindings
type AccountService struct {
	store               Store
	credentials         CredentialHelper
	encoding            DigestEncoding
	defaultDepartmentID int64
	batchSize           int
}

// Option configures an AccountService
type Option func(*AccountService)

// WithCredentialHelper replaces the default Argon2id credential helper
func WithCredentialHelper(helper CredentialHelper) Option {
	return func(s *AccountService) {
		s.credentials = helper
	}
}

// WithDigestEncoding sets the text encoding of stored digests
func WithDigestEncoding(encoding DigestEncoding) Option {
	return func(s *AccountService) {
		s.encoding = encoding
	}
}

// WithDefaultDepartmentID overrides DefaultDepartmentID
func WithDefaultDepartmentID(id int64) Option {
	return func(s *AccountService) {
		s.defaultDepartmentID = id
	}
}

// WithBatchSize caps the rows per round trip when applying binding changes.
// Zero or less writes all changes in one batch.
func WithBatchSize(size int) Option {
	return func(s *AccountService) {
		s.batchSize = size
	}
}

// NewAccountService creates a new account service
func NewAccountService(store Store, opts ...Option) *AccountService {
	s := &AccountService{
		store:               store,
		credentials:         NewArgon2CredentialHelper(),
		encoding:            DigestHex,
		defaultDepartmentID: DefaultDepartmentID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAccount returns the account projection with its role ids flattened
func (s *AccountService) GetAccount(ctx context.Context, id int64) (AccountView, error) {
	view, err := s.store.GetAccountView(ctx, id)
	if err != nil {
		return AccountView{}, pkgerrors.PersistenceFailure(err, "failed to load account")
	}
	if view == nil {
		return AccountView{}, pkgerrors.NotFound("account", strconv.FormatInt(id, 10))
	}
	view.RoleIDs = roleIDsOf(view.Roles)
	return *view, nil
}

// FindAccounts lists the active accounts of one user type
func (s *AccountService) FindAccounts(ctx context.Context, userType UserType) ([]AccountView, error) {
	views, err := s.store.FindAccounts(ctx, userType)
	if err != nil {
		return nil, pkgerrors.PersistenceFailure(err, "failed to list accounts")
	}
	for i := range views {
		views[i].RoleIDs = roleIDsOf(views[i].Roles)
	}
	return views, nil
}

// FindRoles lists the role catalog
func (s *AccountService) FindRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.store.FindRoles(ctx)
	if err != nil {
		return nil, pkgerrors.PersistenceFailure(err, "failed to list roles")
	}
	return roles, nil
}

// CreateRole adds a role to the catalog
func (s *AccountService) CreateRole(ctx context.Context, name string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, pkgerrors.InvalidParam("name", "role name cannot be empty")
	}
	role, err := s.store.CreateRole(ctx, name)
	if err != nil {
		return Role{}, pkgerrors.PersistenceFailure(err, "failed to create role")
	}
	return role, nil
}

// CreateAccount creates an account of userType and binds it to input.RoleIDs.
// The account row and its bindings are written in one transaction.
func (s *AccountService) CreateAccount(ctx context.Context, input AccountInput, userType UserType) (AccountView, error) {
	if input.Username == "" {
		return AccountView{}, pkgerrors.InvalidParam("username", "username and password cannot be empty")
	}
	if input.Password == "" {
		return AccountView{}, pkgerrors.InvalidParam("password", "username and password cannot be empty")
	}

	var accountID int64
	err := s.store.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.FindAccountByUsername(ctx, input.Username, userType)
		if err != nil {
			return pkgerrors.PersistenceFailure(err, "failed to check username")
		}
		if existing != nil {
			return pkgerrors.DuplicateEntity("account", input.Username).WithDetail("user_type", string(userType))
		}

		account := &Account{Username: input.Username}
		if err := s.prepareCredentials(account, input.Password, userType); err != nil {
			return err
		}
		if err := repo.InsertAccount(ctx, account); err != nil {
			if errors.Is(err, ErrDuplicateAccount) {
				return pkgerrors.DuplicateEntity("account", input.Username).WithDetail("user_type", string(userType))
			}
			slog.Error("Failed to insert account", "error", err, "username", input.Username, "userType", userType)
			return pkgerrors.PersistenceFailure(err, "failed to create account")
		}
		accountID = account.ID

		bindings := newBindings(account.ID, userType, input.RoleIDs)
		if len(bindings) == 0 {
			slog.Info("No roles to assign", "userId", account.ID)
			return nil
		}
		slog.Info("Assigning roles to account", "userId", account.ID, "roleIds", input.RoleIDs)
		if err := repo.InsertBindings(ctx, bindings); err != nil {
			slog.Error("Failed to assign roles", "error", err, "userId", account.ID)
			return pkgerrors.PersistenceFailure(err, "failed to create account")
		}
		return nil
	})
	if err != nil {
		return AccountView{}, asTyped(err)
	}

	return s.GetAccount(ctx, accountID)
}

// UpdateAccount updates the account and reconciles its bindings with input.RoleIDs.
// An empty password keeps the stored credentials; an empty username keeps the stored name.
func (s *AccountService) UpdateAccount(ctx context.Context, id int64, input AccountInput, userType UserType) (AccountView, error) {
	err := s.store.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		account, err := repo.GetAccountForUpdate(ctx, id)
		if err != nil {
			return pkgerrors.PersistenceFailure(err, "failed to update account")
		}
		if account == nil || account.UserType != userType {
			return pkgerrors.PersistenceFailure(ErrAccountNotFound, "failed to update account").WithDetail("id", id)
		}

		if input.Username != "" && input.Username != account.Username {
			existing, err := repo.FindAccountByUsername(ctx, input.Username, userType)
			if err != nil {
				return pkgerrors.PersistenceFailure(err, "failed to check username")
			}
			if existing != nil {
				return pkgerrors.DuplicateEntity("account", input.Username).WithDetail("user_type", string(userType))
			}
			account.Username = input.Username
		}
		if input.Password != "" {
			if err := s.prepareCredentials(account, input.Password, userType); err != nil {
				return err
			}
		}

		if err := repo.UpdateAccount(ctx, account); err != nil {
			if errors.Is(err, ErrDuplicateAccount) {
				return pkgerrors.DuplicateEntity("account", account.Username).WithDetail("user_type", string(userType))
			}
			slog.Error("Failed to update account", "error", err, "userId", id)
			return pkgerrors.PersistenceFailure(err, "failed to update account")
		}

		mutations, err := s.reconcileBindings(ctx, repo, id, userType, input.RoleIDs)
		if err != nil {
			return err
		}
		if len(mutations) == 0 {
			return nil
		}

		batchSize := s.batchSize
		if batchSize <= 0 {
			batchSize = len(mutations)
		}
		if err := repo.BatchUpsertOrSoftDelete(ctx, mutations, batchSize); err != nil {
			slog.Error("Failed to apply role bindings", "error", err, "userId", id, "changes", len(mutations))
			return pkgerrors.PersistenceFailure(err, "failed to update account")
		}
		return nil
	})
	if err != nil {
		return AccountView{}, asTyped(err)
	}

	return s.GetAccount(ctx, id)
}

// DeleteAccount deletes the account and physically removes all of its bindings within userType
func (s *AccountService) DeleteAccount(ctx context.Context, id int64, userType UserType) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteAccount(ctx, id); err != nil {
			slog.Error("Failed to delete account", "error", err, "userId", id)
			return pkgerrors.PersistenceFailure(err, "failed to delete account")
		}
		if err := repo.HardDeleteBindings(ctx, id, userType); err != nil {
			slog.Error("Failed to delete role bindings", "error", err, "userId", id, "userType", userType)
			return pkgerrors.PersistenceFailure(err, "failed to delete account")
		}
		return nil
	})
	return asTyped(err)
}

// reconcileBindings reads the persisted bindings once and diffs them against desired
func (s *AccountService) reconcileBindings(ctx context.Context, repo BindingRepository, userID int64, userType UserType, desired []int64) ([]Binding, error) {
	existing, err := repo.FindBindings(ctx, userID, userType)
	if err != nil {
		return nil, pkgerrors.PersistenceFailure(err, "failed to load role bindings")
	}
	mutations := Reconcile(userID, userType, existing, desired)
	slog.Info("Reconciled role bindings", "userId", userID, "existing", len(existing), "desired", len(desired), "changes", len(mutations))
	return mutations, nil
}

// prepareCredentials salts and digests password onto account and stamps the user type
func (s *AccountService) prepareCredentials(account *Account, password string, userType UserType) error {
	salt, err := s.credentials.GenerateSalt()
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to prepare credentials")
	}
	digest, err := s.credentials.Digest(password, salt, s.encoding)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeInternal, "failed to prepare credentials")
	}
	account.Salt = salt
	account.Password = digest
	account.DepartmentID = s.defaultDepartmentID
	account.UserType = userType
	return nil
}

// asTyped keeps structured errors and wraps anything else, such as a failed commit
func asTyped(err error) error {
	if err == nil {
		return nil
	}
	var e *pkgerrors.Error
	if errors.As(err, &e) {
		return err
	}
	return pkgerrors.PersistenceFailure(err, "transaction failed")
}

package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memData holds every table of the in-memory and file backends
type memData struct {
	Accounts      map[int64]Account `json:"accounts"`
	Roles         map[int64]Role    `json:"roles"`
	Bindings      map[int64]Binding `json:"bindings"`
	NextAccountID int64             `json:"next_account_id"`
	NextRoleID    int64             `json:"next_role_id"`
	NextBindingID int64             `json:"next_binding_id"`
}

func newMemData() *memData {
	return &memData{
		Accounts: make(map[int64]Account),
		Roles:    make(map[int64]Role),
		Bindings: make(map[int64]Binding),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		Accounts:      make(map[int64]Account, len(d.Accounts)),
		Roles:         make(map[int64]Role, len(d.Roles)),
		Bindings:      make(map[int64]Binding, len(d.Bindings)),
		NextAccountID: d.NextAccountID,
		NextRoleID:    d.NextRoleID,
		NextBindingID: d.NextBindingID,
	}
	for k, v := range d.Accounts {
		if v.DeletedAt != nil {
			deletedAt := *v.DeletedAt
			v.DeletedAt = &deletedAt
		}
		c.Accounts[k] = v
	}
	for k, v := range d.Roles {
		c.Roles[k] = v
	}
	for k, v := range d.Bindings {
		c.Bindings[k] = v
	}
	return c
}

// InMemoryRepository implements Store using in-memory maps
type InMemoryRepository struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *memData

	// persist is called after every successful write while mu is held
	persist func(*memData) error
}

// NewInMemoryRepository creates a new in-memory account repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: newMemData()}
}

// WithTx runs fn against a private copy of the data. The copy is persisted and
// replaces the stored data only when fn succeeds. Direct writes on r wait for
// the transaction to end, so fn must write through repo.
func (r *InMemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	tx := &InMemoryRepository{data: r.data.clone()}
	r.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.persist != nil {
		if err := r.persist(tx.data); err != nil {
			return fmt.Errorf("failed to save: %w", err)
		}
	}
	r.data = tx.data
	return nil
}

// lockWrite orders a direct write with committing transactions
func (r *InMemoryRepository) lockWrite() func() {
	r.txMu.Lock()
	r.mu.Lock()
	return func() {
		r.mu.Unlock()
		r.txMu.Unlock()
	}
}

// commit runs persist after a mutation and undoes the mutation if persisting fails
func (r *InMemoryRepository) commit(undo func()) error {
	if r.persist == nil {
		return nil
	}
	if err := r.persist(r.data); err != nil {
		undo()
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// FindAccountByUsername finds an active account by username within a user type
func (r *InMemoryRepository) FindAccountByUsername(ctx context.Context, username string, userType UserType) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.data.Accounts {
		if account.DeletedAt == nil && account.Username == username && account.UserType == userType {
			found := account
			return &found, nil
		}
	}
	return nil, nil
}

// GetAccountForUpdate gets an active account by ID
func (r *InMemoryRepository) GetAccountForUpdate(ctx context.Context, id int64) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.data.Accounts[id]
	if !ok || account.DeletedAt != nil {
		return nil, nil
	}
	return &account, nil
}

// GetAccountView gets an active account with its active roles
func (r *InMemoryRepository) GetAccountView(ctx context.Context, id int64) (*AccountView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.data.Accounts[id]
	if !ok || account.DeletedAt != nil {
		return nil, nil
	}
	view := newView(account, r.rolesOf(account.ID, account.UserType))
	return &view, nil
}

// FindAccounts lists active accounts of a user type ordered by ID
func (r *InMemoryRepository) FindAccounts(ctx context.Context, userType UserType) ([]AccountView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var views []AccountView
	for _, account := range r.data.Accounts {
		if account.DeletedAt != nil || account.UserType != userType {
			continue
		}
		views = append(views, newView(account, r.rolesOf(account.ID, account.UserType)))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

// rolesOf must be called with mu held
func (r *InMemoryRepository) rolesOf(userID int64, userType UserType) []Role {
	roles := []Role{}
	for _, b := range r.activeBindings(userID, userType) {
		if role, ok := r.data.Roles[b.RoleID]; ok {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles
}

// activeBindings must be called with mu held
func (r *InMemoryRepository) activeBindings(userID int64, userType UserType) []Binding {
	var bindings []Binding
	for _, b := range r.data.Bindings {
		if !b.Deleted && b.UserID == userID && b.UserType == userType {
			bindings = append(bindings, b)
		}
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].ID < bindings[j].ID })
	return bindings
}

// InsertAccount stores a new account and assigns its ID
func (r *InMemoryRepository) InsertAccount(ctx context.Context, account *Account) error {
	unlock := r.lockWrite()
	defer unlock()

	for _, existing := range r.data.Accounts {
		if existing.DeletedAt == nil && existing.Username == account.Username && existing.UserType == account.UserType {
			return ErrDuplicateAccount
		}
	}

	now := time.Now().UTC()
	r.data.NextAccountID++
	account.ID = r.data.NextAccountID
	account.CreatedAt = now
	account.LastModifiedAt = now
	account.DeletedAt = nil
	r.data.Accounts[account.ID] = *account

	return r.commit(func() {
		delete(r.data.Accounts, account.ID)
		r.data.NextAccountID--
	})
}

// UpdateAccount overwrites the stored fields of an active account
func (r *InMemoryRepository) UpdateAccount(ctx context.Context, account *Account) error {
	unlock := r.lockWrite()
	defer unlock()

	previous, ok := r.data.Accounts[account.ID]
	if !ok || previous.DeletedAt != nil {
		return ErrAccountNotFound
	}
	for id, existing := range r.data.Accounts {
		if id != account.ID && existing.DeletedAt == nil && existing.Username == account.Username && existing.UserType == account.UserType {
			return ErrDuplicateAccount
		}
	}

	updated := previous
	updated.Username = account.Username
	updated.UserType = account.UserType
	updated.Password = account.Password
	updated.Salt = account.Salt
	updated.DepartmentID = account.DepartmentID
	updated.LastModifiedAt = time.Now().UTC()
	r.data.Accounts[account.ID] = updated
	*account = updated

	return r.commit(func() {
		r.data.Accounts[account.ID] = previous
	})
}

// DeleteAccount soft deletes an account
func (r *InMemoryRepository) DeleteAccount(ctx context.Context, id int64) error {
	unlock := r.lockWrite()
	defer unlock()

	previous, ok := r.data.Accounts[id]
	if !ok || previous.DeletedAt != nil {
		return ErrAccountNotFound
	}

	deleted := previous
	now := time.Now().UTC()
	deleted.DeletedAt = &now
	deleted.LastModifiedAt = now
	r.data.Accounts[id] = deleted

	return r.commit(func() {
		r.data.Accounts[id] = previous
	})
}

// FindRoles returns all roles ordered by ID
func (r *InMemoryRepository) FindRoles(ctx context.Context) ([]Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]Role, 0, len(r.data.Roles))
	for _, role := range r.data.Roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

// CreateRole creates a new role
func (r *InMemoryRepository) CreateRole(ctx context.Context, name string) (Role, error) {
	unlock := r.lockWrite()
	defer unlock()

	for _, role := range r.data.Roles {
		if role.Name == name {
			return Role{}, fmt.Errorf("role already exists: %s", name)
		}
	}

	r.data.NextRoleID++
	role := Role{ID: r.data.NextRoleID, Name: name}
	r.data.Roles[role.ID] = role

	if err := r.commit(func() {
		delete(r.data.Roles, role.ID)
		r.data.NextRoleID--
	}); err != nil {
		return Role{}, err
	}
	return role, nil
}

// FindBindings returns the active bindings of an account ordered by ID
func (r *InMemoryRepository) FindBindings(ctx context.Context, userID int64, userType UserType) ([]Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.activeBindings(userID, userType), nil
}

// InsertBindings stores new bindings and assigns their IDs
func (r *InMemoryRepository) InsertBindings(ctx context.Context, bindings []Binding) error {
	unlock := r.lockWrite()
	defer unlock()

	if err := r.checkBindings(bindings); err != nil {
		return err
	}

	previous := r.data.clone()
	for _, b := range bindings {
		r.insertBinding(b)
	}
	return r.commit(func() { r.data = previous })
}

// BatchUpsertOrSoftDelete inserts new bindings and writes the deleted flag of existing ones.
// The in-memory store applies all batches at once.
func (r *InMemoryRepository) BatchUpsertOrSoftDelete(ctx context.Context, bindings []Binding, batchSize int) error {
	unlock := r.lockWrite()
	defer unlock()

	if batchSize <= 0 {
		return fmt.Errorf("invalid batch size: %d", batchSize)
	}
	var inserts []Binding
	for _, b := range bindings {
		if b.ID == 0 {
			inserts = append(inserts, b)
			continue
		}
		if _, ok := r.data.Bindings[b.ID]; !ok {
			return fmt.Errorf("binding not found: %d", b.ID)
		}
	}
	if err := r.checkBindings(inserts); err != nil {
		return err
	}

	previous := r.data.clone()
	for _, b := range bindings {
		if b.ID == 0 {
			r.insertBinding(b)
			continue
		}
		stored := r.data.Bindings[b.ID]
		stored.Deleted = b.Deleted
		r.data.Bindings[b.ID] = stored
	}
	return r.commit(func() { r.data = previous })
}

// HardDeleteBindings physically removes every binding of an account within a user type
func (r *InMemoryRepository) HardDeleteBindings(ctx context.Context, userID int64, userType UserType) error {
	unlock := r.lockWrite()
	defer unlock()

	previous := r.data.clone()
	for id, b := range r.data.Bindings {
		if b.UserID == userID && b.UserType == userType {
			delete(r.data.Bindings, id)
		}
	}
	return r.commit(func() { r.data = previous })
}

// checkBindings rejects unknown accounts and roles, and a second active binding
// for the same role. Must be called with mu held.
func (r *InMemoryRepository) checkBindings(bindings []Binding) error {
	for _, b := range bindings {
		if _, ok := r.data.Accounts[b.UserID]; !ok {
			return ErrAccountNotFound
		}
		if _, ok := r.data.Roles[b.RoleID]; !ok {
			return fmt.Errorf("%w: %d", ErrRoleNotFound, b.RoleID)
		}
		if b.Deleted {
			continue
		}
		for _, existing := range r.data.Bindings {
			if !existing.Deleted && existing.UserID == b.UserID && existing.UserType == b.UserType && existing.RoleID == b.RoleID {
				return fmt.Errorf("role %d already bound to account %d", b.RoleID, b.UserID)
			}
		}
	}
	return nil
}

// insertBinding must be called with mu held
func (r *InMemoryRepository) insertBinding(b Binding) {
	r.data.NextBindingID++
	b.ID = r.data.NextBindingID
	r.data.Bindings[b.ID] = b
}

// SeedRole adds a role with a fixed ID, for tests and initialization
func (r *InMemoryRepository) SeedRole(role Role) error {
	unlock := r.lockWrite()
	defer unlock()

	previous, existed := r.data.Roles[role.ID]
	previousNext := r.data.NextRoleID
	r.data.Roles[role.ID] = role
	if role.ID > r.data.NextRoleID {
		r.data.NextRoleID = role.ID
	}

	return r.commit(func() {
		if existed {
			r.data.Roles[role.ID] = previous
		} else {
			delete(r.data.Roles, role.ID)
		}
		r.data.NextRoleID = previousNext
	})
}

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// DBTX is an interface that allows us to use either a database pool or a transaction.
// Begin on a pgx.Tx opens a savepoint, so repositories bound to a transaction can nest.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
	Begin(context.Context) (pgx.Tx, error)
}

// PostgresRepository implements Store using PostgreSQL
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgreSQL account repository
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// WithTx runs fn inside a database transaction and commits when fn returns nil
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				slog.Error("Failed to roll back transaction", "err", rbErr)
			}
		}
	}()

	if err = fn(ctx, NewPostgresRepository(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const accountColumns = `id, username, user_type, password, salt, department_id, created_at, last_modified_at, deleted_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.UserType,
		&a.Password,
		&a.Salt,
		&a.DepartmentID,
		&a.CreatedAt,
		&a.LastModifiedAt,
		&a.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// FindAccountByUsername finds an active account by username within a user type
func (r *PostgresRepository) FindAccountByUsername(ctx context.Context, username string, userType UserType) (*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE username = $1 AND user_type = $2 AND deleted_at IS NULL
	`
	account, err := scanAccount(r.db.QueryRow(ctx, query, username, userType))
	if err != nil {
		return nil, fmt.Errorf("failed to find account by username: %w", err)
	}
	return account, nil
}

// GetAccountForUpdate loads an active account and locks its row until the transaction ends
func (r *PostgresRepository) GetAccountForUpdate(ctx context.Context, id int64) (*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`
	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get account for update: %w", err)
	}
	return account, nil
}

// GetAccountView loads an active account with its active roles
func (r *PostgresRepository) GetAccountView(ctx context.Context, id int64) (*AccountView, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1 AND deleted_at IS NULL
	`
	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, nil
	}

	roles, err := r.rolesOf(ctx, []int64{account.ID})
	if err != nil {
		return nil, err
	}
	view := newView(*account, roles[roleKey{account.ID, account.UserType}])
	return &view, nil
}

// FindAccounts returns the active accounts of a user type ordered by ID
func (r *PostgresRepository) FindAccounts(ctx context.Context, userType UserType) ([]AccountView, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_type = $1 AND deleted_at IS NULL
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, userType)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Account, error) {
		a, err := scanAccount(row)
		if err != nil {
			return Account{}, err
		}
		return *a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan accounts: %w", err)
	}

	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	roles, err := r.rolesOf(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, newView(a, roles[roleKey{a.ID, a.UserType}]))
	}
	return views, nil
}

type roleKey struct {
	userID   int64
	userType UserType
}

// rolesOf loads the active roles of every given account in one query
func (r *PostgresRepository) rolesOf(ctx context.Context, userIDs []int64) (map[roleKey][]Role, error) {
	result := make(map[roleKey][]Role)
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT ar.user_id, ar.user_type, r.id, r.name
		FROM account_roles ar
		JOIN roles r ON r.id = ar.role_id
		WHERE ar.user_id = ANY($1) AND NOT ar.is_deleted
		ORDER BY ar.user_id, r.id
	`
	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query account roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key roleKey
		var role Role
		if err := rows.Scan(&key.userID, &key.userType, &role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("failed to scan account role: %w", err)
		}
		result[key] = append(result[key], role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account roles: %w", err)
	}
	return result, nil
}

// InsertAccount creates a new account and assigns its ID and timestamps
func (r *PostgresRepository) InsertAccount(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (username, user_type, password, salt, department_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, last_modified_at
	`
	err := r.db.QueryRow(ctx, query,
		account.Username,
		account.UserType,
		account.Password,
		account.Salt,
		account.DepartmentID,
	).Scan(&account.ID, &account.CreatedAt, &account.LastModifiedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	account.DeletedAt = nil
	return nil
}

// UpdateAccount overwrites the stored fields of an active account
func (r *PostgresRepository) UpdateAccount(ctx context.Context, account *Account) error {
	query := `
		UPDATE accounts
		SET username = $2, user_type = $3, password = $4, salt = $5, department_id = $6, last_modified_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING last_modified_at
	`
	err := r.db.QueryRow(ctx, query,
		account.ID,
		account.Username,
		account.UserType,
		account.Password,
		account.Salt,
		account.DepartmentID,
	).Scan(&account.LastModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		if isUniqueViolation(err) {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// DeleteAccount soft deletes an account
func (r *PostgresRepository) DeleteAccount(ctx context.Context, id int64) error {
	query := `
		UPDATE accounts
		SET deleted_at = NOW(), last_modified_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// FindRoles returns all roles ordered by ID
func (r *PostgresRepository) FindRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	roles, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Role])
	if err != nil {
		return nil, fmt.Errorf("failed to scan roles: %w", err)
	}
	return roles, nil
}

// CreateRole creates a new role
func (r *PostgresRepository) CreateRole(ctx context.Context, name string) (Role, error) {
	role := Role{Name: name}
	err := r.db.QueryRow(ctx, `INSERT INTO roles (name) VALUES ($1) RETURNING id`, name).Scan(&role.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, fmt.Errorf("role already exists: %s", name)
		}
		return Role{}, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// FindBindings returns the active bindings of an account ordered by ID
func (r *PostgresRepository) FindBindings(ctx context.Context, userID int64, userType UserType) ([]Binding, error) {
	query := `
		SELECT id, user_id, role_id, user_type, is_deleted
		FROM account_roles
		WHERE user_id = $1 AND user_type = $2 AND NOT is_deleted
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, userID, userType)
	if err != nil {
		return nil, fmt.Errorf("failed to query bindings: %w", err)
	}
	bindings, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Binding])
	if err != nil {
		return nil, fmt.Errorf("failed to scan bindings: %w", err)
	}
	return bindings, nil
}

const insertBindingQuery = `
	INSERT INTO account_roles (user_id, role_id, user_type)
	VALUES ($1, $2, $3)
`

const softDeleteBindingQuery = `
	UPDATE account_roles
	SET is_deleted = $2, last_modified_at = NOW()
	WHERE id = $1
`

// InsertBindings stores new bindings in a single batch
func (r *PostgresRepository) InsertBindings(ctx context.Context, bindings []Binding) error {
	if len(bindings) == 0 {
		return nil
	}
	return r.BatchUpsertOrSoftDelete(ctx, bindings, len(bindings))
}

// BatchUpsertOrSoftDelete sends bindings in batches of batchSize.
// Bindings without an ID are inserted; the rest have their deleted flag written.
func (r *PostgresRepository) BatchUpsertOrSoftDelete(ctx context.Context, bindings []Binding, batchSize int) error {
	if batchSize <= 0 {
		return fmt.Errorf("invalid batch size: %d", batchSize)
	}

	for start := 0; start < len(bindings); start += batchSize {
		end := start + batchSize
		if end > len(bindings) {
			end = len(bindings)
		}
		if err := r.sendBindingBatch(ctx, bindings[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) sendBindingBatch(ctx context.Context, chunk []Binding) (err error) {
	batch := &pgx.Batch{}
	for _, b := range chunk {
		if b.ID == 0 {
			batch.Queue(insertBindingQuery, b.UserID, b.RoleID, b.UserType)
		} else {
			batch.Queue(softDeleteBindingQuery, b.ID, b.Deleted)
		}
	}

	results := r.db.SendBatch(ctx, batch)
	defer func() {
		if closeErr := results.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close binding batch: %w", closeErr)
		}
	}()

	for _, b := range chunk {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("failed to write binding for role %d: %w", b.RoleID, err)
		}
		if b.ID != 0 && tag.RowsAffected() == 0 {
			return fmt.Errorf("binding not found: %d", b.ID)
		}
	}
	return nil
}

// HardDeleteBindings physically removes every binding of an account within a user type
func (r *PostgresRepository) HardDeleteBindings(ctx context.Context, userID int64, userType UserType) error {
	query := `DELETE FROM account_roles WHERE user_id = $1 AND user_type = $2`
	if _, err := r.db.Exec(ctx, query, userID, userType); err != nil {
		return fmt.Errorf("failed to delete bindings: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}


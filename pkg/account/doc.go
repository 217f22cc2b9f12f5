// Package account manages user accounts and their role bindings for simple-account.
//
// Accounts live in a namespace partitioned by user type (system users and
// customers), so the same username may exist once per user type. Each account
// is bound to zero or more roles from a shared role catalog.
//
// # Overview
//
// The account package provides:
//   - Account lifecycle management (create, read, update, delete)
//   - Role binding reconciliation with soft-deleted bindings on update
//   - Salted Argon2id password digests in hex or base64 text form
//   - Transactional writes across PostgreSQL, file and in-memory stores
//
// # Basic Usage
//
//	pool, _ := pgxpool.New(ctx, dsn)
//	store := account.NewPostgresRepository(pool)
//	service := account.NewAccountService(store, account.WithBatchSize(100))
//
//	view, err := service.CreateAccount(ctx, account.AccountInput{
//		Username: "alice",
//		Password: "s3cret",
//		RoleIDs:  []int64{1, 2},
//	}, account.UserTypeSystem)
//
// # Role Reconciliation
//
// UpdateAccount reads the active bindings once and diffs them against the
// requested role ids by exact integer set membership:
//
//	existing {1, 2, 3}, desired {2, 3, 4}
//	=> soft delete the binding of role 1, insert a binding for role 4
//
// Removed bindings are kept with their deleted flag set. DeleteAccount instead
// removes every binding of the account physically.
//
// # Storage Backends
//
// NewStore selects a backend by name:
//
//	store, err := account.NewStore("file", account.RepositoryConfig{DataDir: "./data"})
//
// Every write of one service operation runs inside Store.WithTx; a failure at
// any step leaves no partial account or binding behind.
package account

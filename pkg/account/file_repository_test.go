package account

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestFileRepo creates a temporary directory and a file repository for testing
func setupTestFileRepo(t *testing.T) (*FileRepository, string) {
	tempDir := filepath.Join(os.TempDir(), "account-test-"+uuid.New().String())
	err := os.MkdirAll(tempDir, 0755)
	require.NoError(t, err)

	repo, err := NewFileRepository(tempDir)
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tempDir)
	})

	return repo, tempDir
}

func TestFileRepository_NewRepository(t *testing.T) {
	tempDir := filepath.Join(os.TempDir(), "account-test-new-"+uuid.New().String())
	defer os.RemoveAll(tempDir)

	repo, err := NewFileRepository(tempDir)
	assert.NoError(t, err)
	assert.NotNil(t, repo)
	assert.DirExists(t, tempDir)
}

func TestFileRepository_Persistence(t *testing.T) {
	repo, tempDir := setupTestFileRepo(t)
	ctx := context.Background()

	role, err := repo.CreateRole(ctx, "admin")
	require.NoError(t, err)

	account := &Account{Username: "alice", UserType: UserTypeSystem, Password: "digest", Salt: "salt"}
	require.NoError(t, repo.InsertAccount(ctx, account))
	require.NoError(t, repo.InsertBindings(ctx, []Binding{{UserID: account.ID, RoleID: role.ID, UserType: UserTypeSystem}}))

	assert.FileExists(t, filepath.Join(tempDir, accountsFileName))

	// Create new repository instance to test loading
	reloaded, err := NewFileRepository(tempDir)
	require.NoError(t, err)

	found, err := reloaded.FindAccountByUsername(ctx, "alice", UserTypeSystem)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, account.ID, found.ID)
	assert.Equal(t, "digest", found.Password)
	assert.Equal(t, "salt", found.Salt)

	view, err := reloaded.GetAccountView(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, []Role{role}, view.Roles)

	// IDs continue after a reload.
	next, err := reloaded.CreateRole(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, role.ID+1, next.ID)
}

func TestFileRepository_RollbackIsPersisted(t *testing.T) {
	repo, tempDir := setupTestFileRepo(t)
	ctx := context.Background()

	err := repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.InsertAccount(ctx, &Account{Username: "alice", UserType: UserTypeSystem}); err != nil {
			return err
		}
		return ErrRoleNotFound
	})
	require.ErrorIs(t, err, ErrRoleNotFound)

	reloaded, err := NewFileRepository(tempDir)
	require.NoError(t, err)
	found, err := reloaded.FindAccountByUsername(ctx, "alice", UserTypeSystem)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFileRepository_FailedSaveDiscardsTransaction(t *testing.T) {
	repo, tempDir := setupTestFileRepo(t)
	ctx := context.Background()
	saveErr := errors.New("disk full")
	repo.persist = func(*memData) error { return saveErr }

	err := repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		return tx.InsertAccount(ctx, &Account{Username: "alice", UserType: UserTypeSystem})
	})
	require.ErrorIs(t, err, saveErr)

	found, err := repo.FindAccountByUsername(ctx, "alice", UserTypeSystem)
	require.NoError(t, err)
	assert.Nil(t, found)

	reloaded, err := NewFileRepository(tempDir)
	require.NoError(t, err)
	found, err = reloaded.FindAccountByUsername(ctx, "alice", UserTypeSystem)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFileRepository_SavesOncePerCommit(t *testing.T) {
	repo, tempDir := setupTestFileRepo(t)
	ctx := context.Background()
	saves := 0
	save := repo.persist
	repo.persist = func(d *memData) error {
		saves++
		return save(d)
	}

	err := repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.InsertAccount(ctx, &Account{Username: "alice", UserType: UserTypeSystem}); err != nil {
			return err
		}
		return ErrRoleNotFound
	})
	require.ErrorIs(t, err, ErrRoleNotFound)
	assert.Equal(t, 0, saves)
	assert.NoFileExists(t, filepath.Join(tempDir, accountsFileName))

	err = repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		account := &Account{Username: "bob", UserType: UserTypeSystem}
		if err := tx.InsertAccount(ctx, account); err != nil {
			return err
		}
		role, err := tx.CreateRole(ctx, "admin")
		if err != nil {
			return err
		}
		return tx.InsertBindings(ctx, []Binding{{UserID: account.ID, RoleID: role.ID, UserType: UserTypeSystem}})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, saves)
}

func TestFileRepository_SeedRoleSaveFailure(t *testing.T) {
	repo, tempDir := setupTestFileRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SeedRole(Role{ID: 1, Name: "admin"}))

	saveErr := errors.New("disk full")
	save := repo.persist
	repo.persist = func(*memData) error { return saveErr }
	require.ErrorIs(t, repo.SeedRole(Role{ID: 5, Name: "viewer"}), saveErr)
	repo.persist = save

	roles, err := repo.FindRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Role{{ID: 1, Name: "admin"}}, roles)

	// IDs continue from the last role that was saved.
	role, err := repo.CreateRole(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, int64(2), role.ID)

	reloaded, err := NewFileRepository(tempDir)
	require.NoError(t, err)
	roles, err = reloaded.FindRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)
}

func TestFileRepository_SoftDeletedBindingsSurviveReload(t *testing.T) {
	repo, tempDir := setupTestFileRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SeedRole(Role{ID: 1, Name: "admin"}))
	require.NoError(t, repo.SeedRole(Role{ID: 2, Name: "viewer"}))

	service := NewAccountService(repo, WithCredentialHelper(&stubCredentials{}))
	created, err := service.CreateAccount(ctx, AccountInput{Username: "alice", Password: "pw", RoleIDs: []int64{1}}, UserTypeSystem)
	require.NoError(t, err)
	_, err = service.UpdateAccount(ctx, created.ID, AccountInput{RoleIDs: []int64{2}}, UserTypeSystem)
	require.NoError(t, err)

	reloaded, err := NewFileRepository(tempDir)
	require.NoError(t, err)
	bindings := bindingsOf(reloaded.InMemoryRepository, created.ID)
	require.Len(t, bindings, 2)
	assert.True(t, bindings[0].Deleted)
	assert.False(t, bindings[1].Deleted)

	active, err := reloaded.FindBindings(ctx, created.ID, UserTypeSystem)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(2), active[0].RoleID)
}

func TestFileRepository_CorruptFile(t *testing.T) {
	tempDir := filepath.Join(os.TempDir(), "account-test-corrupt-"+uuid.New().String())
	require.NoError(t, os.MkdirAll(tempDir, 0755))
	defer os.RemoveAll(tempDir)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, accountsFileName), []byte("{not json"), 0600))

	_, err := NewFileRepository(tempDir)
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		store, err := NewStore("memory", RepositoryConfig{})
		require.NoError(t, err)
		assert.IsType(t, &InMemoryRepository{}, store)
	})

	t.Run("File", func(t *testing.T) {
		tempDir := filepath.Join(os.TempDir(), "account-test-factory-"+uuid.New().String())
		defer os.RemoveAll(tempDir)

		store, err := NewStore("file", RepositoryConfig{DataDir: tempDir})
		require.NoError(t, err)
		assert.IsType(t, &FileRepository{}, store)
	})

	t.Run("FileWithoutDir", func(t *testing.T) {
		_, err := NewStore("file", RepositoryConfig{})
		assert.Error(t, err)
	})

	t.Run("PostgresWithoutDB", func(t *testing.T) {
		_, err := NewStore("postgres", RepositoryConfig{})
		assert.Error(t, err)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := NewStore("mysql", RepositoryConfig{})
		assert.Error(t, err)
	})
}

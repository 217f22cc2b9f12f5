package bootstrap

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-account/pkg/account"
	"github.com/tendant/simple-account/pkg/config"
)

func newTestService(t *testing.T) (*account.AccountService, *account.InMemoryRepository) {
	t.Helper()
	repo := account.NewInMemoryRepository()
	return account.NewAccountService(repo), repo
}

func TestBootstrapAdminRolesAndAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesRolesAndAccount", func(t *testing.T) {
		service, repo := newTestService(t)
		require.NoError(t, repo.SeedRole(account.Role{ID: 1, Name: "Admin"}))

		result, err := BootstrapAdminRolesAndAccount(ctx, AdminBootstrapConfig{
			AdminRoleNames: []string{"admin", "superadmin"},
			AdminUsername:  "root",
			AdminPassword:  "changeme",
			UserType:       account.UserTypeSystem,
			Service:        service,
		})
		require.NoError(t, err)
		require.True(t, result.AccountCreated)
		require.Len(t, result.Roles, 2)
		assert.False(t, result.Roles[0].Created)
		assert.True(t, result.Roles[1].Created)
		assert.Equal(t, int64(1), result.PrimaryRole.ID)
		assert.True(t, result.PasswordFromEnv)
		assert.Empty(t, result.Password)

		view, err := service.GetAccount(ctx, result.AccountID)
		require.NoError(t, err)
		assert.Equal(t, "root", view.Username)
		assert.Equal(t, []int64{1}, view.RoleIDs)
	})

	t.Run("MatchesRoleNamesIgnoringCase", func(t *testing.T) {
		service, repo := newTestService(t)
		require.NoError(t, repo.SeedRole(account.Role{ID: 3, Name: "SuperAdmin"}))

		result, err := BootstrapAdminRolesAndAccount(ctx, AdminBootstrapConfig{
			AdminRoleNames: []string{"superadmin", "auditor", "AUDITOR"},
			AdminUsername:  "root",
			AdminPassword:  "changeme",
			UserType:       account.UserTypeSystem,
			Service:        service,
		})
		require.NoError(t, err)
		require.Len(t, result.Roles, 3)
		assert.Equal(t, int64(3), result.Roles[0].ID)
		assert.False(t, result.Roles[0].Created)
		assert.True(t, result.Roles[1].Created)
		assert.False(t, result.Roles[2].Created)
		assert.Equal(t, result.Roles[1].ID, result.Roles[2].ID)

		roles, err := service.FindRoles(ctx)
		require.NoError(t, err)
		assert.Len(t, roles, 2)
	})

	t.Run("GeneratesPassword", func(t *testing.T) {
		service, _ := newTestService(t)

		result, err := BootstrapAdminRolesAndAccount(ctx, AdminBootstrapConfig{
			AdminRoleNames: []string{"admin"},
			AdminUsername:  "root",
			UserType:       account.UserTypeSystem,
			Service:        service,
		})
		require.NoError(t, err)
		assert.False(t, result.PasswordFromEnv)
		assert.Len(t, result.Password, 24)

		var out bytes.Buffer
		PrintBootstrapResult(&out, result)
		assert.Contains(t, out.String(), result.Password)
		assert.Contains(t, out.String(), "root")
	})

	t.Run("SkipsWhenAccountsExist", func(t *testing.T) {
		service, _ := newTestService(t)
		_, err := service.CreateAccount(ctx, account.AccountInput{Username: "alice", Password: "pw"}, account.UserTypeSystem)
		require.NoError(t, err)

		result, err := BootstrapAdminRolesAndAccount(ctx, AdminBootstrapConfig{
			AdminRoleNames: []string{"admin"},
			AdminUsername:  "root",
			UserType:       account.UserTypeSystem,
			Service:        service,
		})
		require.NoError(t, err)
		assert.False(t, result.AccountCreated)

		roles, err := service.FindRoles(ctx)
		require.NoError(t, err)
		assert.Empty(t, roles)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		service, _ := newTestService(t)

		_, err := BootstrapAdminRolesAndAccount(ctx, AdminBootstrapConfig{
			AdminUsername: "root",
			UserType:      account.UserTypeSystem,
			Service:       service,
		})
		assert.Error(t, err)

		_, err = BootstrapAdminRolesAndAccount(ctx, AdminBootstrapConfig{
			AdminRoleNames: []string{"admin"},
			UserType:       account.UserTypeSystem,
			Service:        service,
		})
		assert.Error(t, err)
	})
}

func TestBootstrapFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		AccountConfig: config.AccountConfig{
			Persistence:     "memory",
			DigestEncoding:  "base64",
			DefaultUserType: "customer",
		},
	}

	service, closeFn, err := NewAccountService(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()

	result, err := BootstrapFromConfig(ctx, cfg, service)
	require.NoError(t, err)
	assert.Nil(t, result)

	cfg.AdminConfig = config.AdminConfig{RoleNames: "owner", Username: "root", Password: "pw"}
	result, err = BootstrapFromConfig(ctx, cfg, service)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, account.UserTypeCustomer, result.UserType)
	assert.Equal(t, "owner", result.PrimaryRole.Name)
}

func TestOpenStore_File(t *testing.T) {
	cfg := config.Config{AccountConfig: config.AccountConfig{Persistence: "file", DataDir: t.TempDir()}}

	store, closeFn, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &account.FileRepository{}, store)
}

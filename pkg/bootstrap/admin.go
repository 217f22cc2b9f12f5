package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-account/pkg/account"
	"github.com/tendant/simple-account/pkg/config"
)

// AccountService is the subset of *account.AccountService the bootstrap needs
type AccountService interface {
	FindRoles(ctx context.Context) ([]account.Role, error)
	CreateRole(ctx context.Context, name string) (account.Role, error)
	FindAccounts(ctx context.Context, userType account.UserType) ([]account.AccountView, error)
	CreateAccount(ctx context.Context, input account.AccountInput, userType account.UserType) (account.AccountView, error)
}

// AdminBootstrapConfig contains configuration for bootstrapping admin roles and account
type AdminBootstrapConfig struct {
	// Admin role names (from ADMIN_ROLE_NAMES env var)
	AdminRoleNames []string

	// Admin account credentials (from ADMIN_USERNAME, ADMIN_PASSWORD)
	AdminUsername string
	AdminPassword string

	// UserType the admin account is created in
	UserType account.UserType

	Service AccountService
}

// AdminRoleInfo contains information about a bootstrapped admin role
type AdminRoleInfo struct {
	ID      int64
	Name    string
	Created bool // true if created, false if already existed
}

// AdminBootstrapResult contains the result of admin bootstrap operation
type AdminBootstrapResult struct {
	// Roles that were ensured (created or found)
	Roles []AdminRoleInfo

	// Primary admin role (first in list)
	PrimaryRole AdminRoleInfo

	AccountID      int64
	Username       string
	UserType       account.UserType
	Password       string // Only populated if auto-generated
	AccountCreated bool   // true if account was created, false if skipped

	// Password was provided via environment variable
	PasswordFromEnv bool
}

// BootstrapAdminRolesAndAccount ensures admin roles exist and creates the first
// admin account when the user type has no accounts yet
func BootstrapAdminRolesAndAccount(ctx context.Context, cfg AdminBootstrapConfig) (*AdminBootstrapResult, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid bootstrap configuration: %w", err)
	}

	// Skip bootstrap if the user type already has accounts
	existing, err := cfg.Service.FindAccounts(ctx, cfg.UserType)
	if err != nil {
		return nil, fmt.Errorf("failed to check if accounts exist: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("Accounts already exist - skipping admin bootstrap", "userType", cfg.UserType)
		return &AdminBootstrapResult{AccountCreated: false}, nil
	}

	slog.Info("No accounts exist - starting admin bootstrap",
		"admin_roles", cfg.AdminRoleNames)

	roleInfos, err := ensureAdminRoles(ctx, cfg.Service, cfg.AdminRoleNames)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure admin roles: %w", err)
	}

	// Primary role is the first one (bound to the admin account)
	primaryRole := roleInfos[0]

	password := cfg.AdminPassword
	if password == "" {
		password, err = generatePassword()
		if err != nil {
			return nil, fmt.Errorf("failed to generate admin password: %w", err)
		}
	}

	view, err := cfg.Service.CreateAccount(ctx, account.AccountInput{
		Username: cfg.AdminUsername,
		Password: password,
		RoleIDs:  []int64{primaryRole.ID},
	}, cfg.UserType)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin account: %w", err)
	}

	slog.Info("Admin account created",
		"username", view.Username,
		"account_id", view.ID,
		"role", primaryRole.Name)

	result := &AdminBootstrapResult{
		Roles:           roleInfos,
		PrimaryRole:     primaryRole,
		AccountID:       view.ID,
		Username:        view.Username,
		UserType:        view.UserType,
		AccountCreated:  true,
		PasswordFromEnv: cfg.AdminPassword != "",
	}
	if !result.PasswordFromEnv {
		result.Password = password
	}
	return result, nil
}

// validateConfig validates the bootstrap configuration
func validateConfig(cfg AdminBootstrapConfig) error {
	if len(cfg.AdminRoleNames) == 0 {
		return fmt.Errorf("at least one admin role name is required")
	}
	if cfg.AdminUsername == "" {
		return fmt.Errorf("admin username is required")
	}
	if cfg.UserType == "" {
		return fmt.Errorf("user type is required")
	}
	if cfg.Service == nil {
		return fmt.Errorf("account service is required")
	}
	return nil
}

// ensureAdminRoles ensures all admin roles exist, creating them if necessary
func ensureAdminRoles(ctx context.Context, service AccountService, roleNames []string) ([]AdminRoleInfo, error) {
	existingRoles, err := service.FindRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find existing roles: %w", err)
	}

	roleInfos := make([]AdminRoleInfo, 0, len(roleNames))
	for _, roleName := range roleNames {
		if existing, ok := findRole(existingRoles, roleName); ok {
			slog.Info("Admin role already exists", "role", roleName, "id", existing.ID)
			roleInfos = append(roleInfos, AdminRoleInfo{ID: existing.ID, Name: roleName})
			continue
		}

		role, err := service.CreateRole(ctx, roleName)
		if err != nil {
			return nil, fmt.Errorf("failed to create admin role %s: %w", roleName, err)
		}
		existingRoles = append(existingRoles, role)

		slog.Info("Admin role created", "role", roleName, "id", role.ID)
		roleInfos = append(roleInfos, AdminRoleInfo{ID: role.ID, Name: role.Name, Created: true})
	}

	return roleInfos, nil
}

// findRole returns the role whose name matches roleName case-insensitively
func findRole(roles []account.Role, roleName string) (account.Role, bool) {
	for _, role := range roles {
		if config.IsAdminRole(role.Name, []string{roleName}) {
			return role, true
		}
	}
	return account.Role{}, false
}

func generatePassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// countCreated counts how many roles were created (vs already existed)
func countCreated(roles []AdminRoleInfo) int {
	count := 0
	for _, role := range roles {
		if role.Created {
			count++
		}
	}
	return count
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-account/pkg/account"
	"github.com/tendant/simple-account/pkg/bootstrap"
	"github.com/tendant/simple-account/pkg/config"
)

// accountService is what the commands call; tests swap in an in-memory service
type accountService interface {
	GetAccount(ctx context.Context, id int64) (account.AccountView, error)
	FindAccounts(ctx context.Context, userType account.UserType) ([]account.AccountView, error)
	CreateAccount(ctx context.Context, input account.AccountInput, userType account.UserType) (account.AccountView, error)
	UpdateAccount(ctx context.Context, id int64, input account.AccountInput, userType account.UserType) (account.AccountView, error)
	DeleteAccount(ctx context.Context, id int64, userType account.UserType) error
	FindRoles(ctx context.Context) ([]account.Role, error)
	CreateRole(ctx context.Context, name string) (account.Role, error)
}

// openService builds the service from the environment configuration
var openService = func(ctx context.Context) (accountService, account.UserType, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", nil, err
	}
	userType, err := cfg.AccountConfig.UserType()
	if err != nil {
		return nil, "", nil, err
	}
	service, closeFn, err := bootstrap.NewAccountService(ctx, cfg)
	if err != nil {
		return nil, "", nil, err
	}
	return service, userType, closeFn, nil
}

type accountFlags struct {
	userType string
	username string
	password string
	roleIDs  []int64
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "accountctl",
		Short:         "Manage accounts and their role bindings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newCreateCommand(),
		newUpdateCommand(),
		newDeleteCommand(),
		newGetCommand(),
		newListCommand(),
		newRolesCommand(),
	)
	return root
}

func registerUserType(cmd *cobra.Command, flags *accountFlags) {
	cmd.Flags().StringVar(&flags.userType, "user-type", "", "User type (sys_user, customer). Defaults to ACCOUNT_DEFAULT_USER_TYPE")
}

func registerAccountFlags(cmd *cobra.Command, flags *accountFlags) {
	registerUserType(cmd, flags)
	cmd.Flags().StringVar(&flags.username, "username", "", "Account username")
	cmd.Flags().StringVar(&flags.password, "password", "", "Account password")
	cmd.Flags().Int64SliceVar(&flags.roleIDs, "role", nil, "Role id to bind (repeatable or comma-separated)")
}

// withService opens the service, resolves the user type and runs fn
func withService(cmd *cobra.Command, flags *accountFlags, fn func(ctx context.Context, service accountService, userType account.UserType) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	service, userType, closeFn, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if flags != nil && flags.userType != "" {
		userType, err = account.ParseUserType(flags.userType)
		if err != nil {
			return err
		}
	}
	return fn(ctx, service, userType)
}

func newCreateCommand() *cobra.Command {
	flags := &accountFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account bound to the given roles",
		Example: `  accountctl create --username alice --password s3cret --role 1 --role 2
  accountctl create --user-type customer --username bob --password pw`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, flags, func(ctx context.Context, service accountService, userType account.UserType) error {
				view, err := service.CreateAccount(ctx, account.AccountInput{
					Username: flags.username,
					Password: flags.password,
					RoleIDs:  flags.roleIDs,
				}, userType)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
	registerAccountFlags(cmd, flags)
	return cmd
}

func newUpdateCommand() *cobra.Command {
	flags := &accountFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an account and reconcile its roles with --role",
		Long: `Update an account. The account ends up bound to exactly the roles given
with --role; omitting --role removes every role. An empty --password keeps
the stored credentials.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, flags, func(ctx context.Context, service accountService, userType account.UserType) error {
				view, err := service.UpdateAccount(ctx, id, account.AccountInput{
					Username: flags.username,
					Password: flags.password,
					RoleIDs:  flags.roleIDs,
				}, userType)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
	registerAccountFlags(cmd, flags)
	return cmd
}

func newDeleteCommand() *cobra.Command {
	flags := &accountFlags{}
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account and all of its role bindings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, flags, func(ctx context.Context, service accountService, userType account.UserType) error {
				if err := service.DeleteAccount(ctx, id, userType); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted account %d\n", id)
				return nil
			})
		},
	}
	registerUserType(cmd, flags)
	return cmd
}

func newGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an account with its roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, nil, func(ctx context.Context, service accountService, _ account.UserType) error {
				view, err := service.GetAccount(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
	return cmd
}

func newListCommand() *cobra.Command {
	flags := &accountFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the accounts of a user type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, flags, func(ctx context.Context, service accountService, userType account.UserType) error {
				views, err := service.FindAccounts(ctx, userType)
				if err != nil {
					return err
				}
				if views == nil {
					views = []account.AccountView{}
				}
				return printJSON(cmd.OutOrStdout(), views)
			})
		},
	}
	registerUserType(cmd, flags)
	return cmd
}

func newRolesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List the role catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, nil, func(ctx context.Context, service accountService, _ account.UserType) error {
				roles, err := service.FindRoles(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), roles)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Add a role to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, nil, func(ctx context.Context, service accountService, _ account.UserType) error {
				role, err := service.CreateRole(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), role)
			})
		},
	})
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id: %s", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

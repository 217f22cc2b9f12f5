package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// PrintBootstrapResult displays the bootstrap results in a clean, formatted way
func PrintBootstrapResult(w io.Writer, result *AdminBootstrapResult) {
	if result == nil || !result.AccountCreated {
		return
	}

	printSectionHeader(w, "ADMIN BOOTSTRAP COMPLETED")
	printRolesSection(w, result.Roles, result.PrimaryRole)
	printAccountSection(w, result)
	printSecurityWarnings(w, result.PasswordFromEnv)
	printSectionFooter(w)
}

// printSectionHeader prints a formatted section header
func printSectionHeader(w io.Writer, title string) {
	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\n", border)
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "%s\n", border)
}

// printSectionFooter prints a formatted section footer
func printSectionFooter(w io.Writer) {
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 80))
}

// printRolesSection prints information about bootstrapped roles
func printRolesSection(w io.Writer, roles []AdminRoleInfo, primaryRole AdminRoleInfo) {
	fmt.Fprintln(w, "\nAdmin Roles:")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for i, role := range roles {
		status := "Already existed"
		if role.Created {
			status = "Created"
		}

		isPrimary := ""
		if role.ID == primaryRole.ID {
			isPrimary = " (PRIMARY - bound to admin account)"
		}

		fmt.Fprintf(w, "  %d. %s%s\n", i+1, role.Name, isPrimary)
		fmt.Fprintf(w, "     ID: %d\n", role.ID)
		fmt.Fprintf(w, "     Status: %s\n", status)

		if i < len(roles)-1 {
			fmt.Fprintln(w)
		}
	}
}

// printAccountSection prints information about the created admin account
func printAccountSection(w io.Writer, result *AdminBootstrapResult) {
	fmt.Fprintln(w, "\nAdmin Account:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "  Username:   %s\n", result.Username)
	fmt.Fprintf(w, "  User type:  %s\n", result.UserType)
	fmt.Fprintf(w, "  Account ID: %d\n", result.AccountID)
	fmt.Fprintf(w, "  Role:       %s\n", result.PrimaryRole.Name)

	// Only display password if it was auto-generated (not from environment)
	if !result.PasswordFromEnv {
		fmt.Fprintf(w, "  Password:   %s\n", result.Password)
	} else {
		fmt.Fprintf(w, "  Password:   (configured via ADMIN_PASSWORD environment variable)\n")
	}
}

// printSecurityWarnings prints important security warnings
func printSecurityWarnings(w io.Writer, passwordFromEnv bool) {
	fmt.Fprintln(w, "\nSECURITY REMINDERS:")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	if passwordFromEnv {
		fmt.Fprintln(w, "  - Admin password was set via environment variable")
		fmt.Fprintln(w, "  - Ensure ADMIN_PASSWORD is removed from .env after bootstrap")
	} else {
		fmt.Fprintln(w, "  - THIS PASSWORD WILL NOT BE DISPLAYED AGAIN - SAVE IT NOW!")
		fmt.Fprintln(w, "  - Store credentials in a secure password manager")
	}
}

// LogBootstrapSummary logs a concise summary using slog (for structured logging)
func LogBootstrapSummary(result *AdminBootstrapResult) {
	if result == nil || !result.AccountCreated {
		return
	}

	// Log without sensitive information (password)
	slog.Info("Admin bootstrap summary",
		"roles_total", len(result.Roles),
		"roles_created", countCreated(result.Roles),
		"primary_role", result.PrimaryRole.Name,
		"admin_username", result.Username,
		"user_type", result.UserType,
		"account_id", result.AccountID,
		"password_from_env", result.PasswordFromEnv,
	)
}

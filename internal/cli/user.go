package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/users"
)

// UserAddOptions holds flags for user add.
type UserAddOptions struct {
	*RootOptions
	Role string
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Check --user/--password and print the role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(rootOpts, cmd)
		},
	}
}

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage stored credentials",
	}

	opts := &UserAddOptions{RootOptions: rootOpts}
	addCmd := &cobra.Command{
		Use:   "add <username> <password>",
		Short: "Create or replace a user",
		Long: `Create or replace a user in the configured backend.

Requires an admin login unless the backend has no users yet, so the first
admin can be created on an empty store.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(opts, args[0], args[1], cmd)
		},
	}
	addCmd.Flags().StringVar(&opts.Role, "role", users.RoleAdmin, "role to grant")
	cmd.AddCommand(addCmd)

	return cmd
}

func runWhoami(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.backend.Users == nil {
		return s.out.Fail("whoami", fact.NewForbiddenError(opts.User, ""))
	}
	user, err := s.backend.Users.Lookup(commandContext(cmd), opts.User, opts.Password)
	if err != nil {
		return s.out.Fail("whoami", err)
	}
	if user == nil {
		return s.out.Fail("whoami", fact.NewForbiddenError(opts.User, ""))
	}

	if s.out.Format == "json" {
		return s.out.Success(user)
	}
	fmt.Fprintf(s.out.Writer, "%s (%s)\n", user.Username, user.Role)
	return nil
}

func runUserAdd(opts *UserAddOptions, username, password string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	registry := s.backend.Users
	if registry == nil {
		return s.out.Fail("add user", fact.NewInvalidArgumentError(fmt.Sprintf("backend %s stores no users", s.backend.Name)))
	}

	existing, err := registry.Credentials(ctx)
	if err != nil {
		return s.out.Fail("add user", err)
	}
	if len(existing) > 0 {
		if err := s.requireAdmin(ctx); err != nil {
			return err
		}
	}

	cred := users.Credential{Username: username, Password: password, Role: opts.Role}
	if err := users.ValidateCredential(cred); err != nil {
		return s.out.Fail("add user", err)
	}
	if err := registry.PutUser(ctx, cred); err != nil {
		return s.out.Fail("add user", err)
	}
	s.logger.Info("user stored", "user", username, "role", opts.Role)

	user := users.User{Username: username, Role: opts.Role}
	if s.out.Format == "json" {
		return s.out.Success(user)
	}
	fmt.Fprintf(s.out.Writer, "✓ user %s (%s)\n", user.Username, user.Role)
	return nil
}

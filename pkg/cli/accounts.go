package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/platinummonkey/campusauth/pkg/auth"
)

func newCreateUserCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "create-user",
		Description: "Create an account",
		Flags:       flag.NewFlagSet("create-user", flag.ContinueOnError),
	}

	username := cmd.Flags.String("username", "", "Username (unique)")
	password := cmd.Flags.String("password", "", "Initial password")
	role := cmd.Flags.String("role", "", "Role: admin, teacher (or staff), student")
	status := cmd.Flags.String("status", string(auth.StatusActive), "Status: active or inactive")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		name := strings.TrimSpace(*username)
		if name == "" || *password == "" {
			return errors.New("-username and -password are required")
		}
		if len(*password) < auth.MinPasswordLength || len(*password) > auth.MaxPasswordLength {
			return fmt.Errorf("password must be %d to %d characters", auth.MinPasswordLength, auth.MaxPasswordLength)
		}
		canonical := auth.Canonicalize(*role)
		if canonical == auth.RoleUnknown {
			return fmt.Errorf("unknown role %q", *role)
		}
		st := auth.Status(strings.ToLower(*status))
		if !st.Valid() {
			return fmt.Errorf("unknown status %q", *status)
		}

		digest, err := env.hasher().Hash(*password)
		if err != nil {
			return err
		}

		stores, err := env.Open(ctx)
		if err != nil {
			return err
		}
		defer stores.Close()

		acct := &auth.Account{
			Username:     name,
			PasswordHash: digest,
			Role:         canonical,
			Status:       st,
		}
		if err := stores.Accounts.Create(ctx, acct); err != nil {
			if errors.Is(err, auth.ErrAccountExists) {
				return fmt.Errorf("username %q is taken", name)
			}
			return fmt.Errorf("failed to create account: %w", err)
		}

		env.Logger.WithFields(map[string]interface{}{
			"user_id": acct.ID,
			"role":    acct.Role,
		}).Info("account created")
		fmt.Fprintf(env.Out, "created %s (id %d, role %s, %s)\n", acct.Username, acct.ID, acct.Role, acct.Status)
		return nil
	}

	return cmd
}

func newSetStatusCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "set-status",
		Description: "Activate or deactivate an account",
		Flags:       flag.NewFlagSet("set-status", flag.ContinueOnError),
	}

	username := cmd.Flags.String("username", "", "Username")
	status := cmd.Flags.String("status", "", "Status: active or inactive")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *username == "" {
			return errors.New("-username is required")
		}
		st := auth.Status(strings.ToLower(*status))
		if !st.Valid() {
			return fmt.Errorf("unknown status %q", *status)
		}

		stores, err := env.Open(ctx)
		if err != nil {
			return err
		}
		defer stores.Close()

		acct, err := stores.Accounts.FindByUsername(ctx, *username)
		if errors.Is(err, auth.ErrAccountNotFound) {
			return fmt.Errorf("no account named %q", *username)
		}
		if err != nil {
			return err
		}
		if err := stores.Accounts.SetStatus(ctx, acct.ID, st); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}

		env.Logger.WithFields(map[string]interface{}{
			"user_id": acct.ID,
			"status":  st,
		}).Info("account status changed")
		fmt.Fprintf(env.Out, "%s is now %s\n", acct.Username, st)
		return nil
	}

	return cmd
}

func newHashPasswordCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "hash-password",
		Description: "Print the bcrypt digest of a password",
		Flags:       flag.NewFlagSet("hash-password", flag.ContinueOnError),
	}

	password := cmd.Flags.String("password", "", "Password to hash")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *password == "" {
			return errors.New("-password is required")
		}
		digest, err := env.hasher().Hash(*password)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, digest)
		return nil
	}

	return cmd
}

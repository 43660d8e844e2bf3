package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/storage"
)

func newResetLimitCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "reset-limit",
		Description: "Clear the rate-limit counter of a client or user",
		Flags:       flag.NewFlagSet("reset-limit", flag.ContinueOnError),
	}

	key := cmd.Flags.String("key", "", "Limiter key: client IP for logins, user:<id> for password changes")
	action := cmd.Flags.String("action", auth.ActionLogin, "Limited action: login_attempt or password_change")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		k := strings.TrimSpace(*key)
		if k == "" {
			return errors.New("-key is required")
		}
		switch *action {
		case auth.ActionLogin, auth.ActionPasswordChange:
		default:
			return fmt.Errorf("unknown action %q", *action)
		}

		stores, err := env.Open(ctx)
		if err != nil {
			return err
		}
		defer stores.Close()

		resetter, ok := stores.Limiter.(storage.LimitResetter)
		if !ok {
			return fmt.Errorf("limiter backend %T cannot reset counters", stores.Limiter)
		}
		if err := resetter.Reset(ctx, k, *action); err != nil {
			return err
		}

		env.Logger.WithFields(map[string]interface{}{
			"key":    k,
			"action": *action,
		}).Info("rate limit reset")
		fmt.Fprintf(env.Out, "reset %s for %s\n", *action, k)
		return nil
	}

	return cmd
}

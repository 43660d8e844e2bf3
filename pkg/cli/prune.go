package cli

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/platinummonkey/campusauth/pkg/janitor"
)

func newPruneCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "prune",
		Description: "Delete expired revocations and rate-limit windows once",
		Flags:       flag.NewFlagSet("prune", flag.ContinueOnError),
	}

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		stores, err := env.Open(ctx)
		if err != nil {
			return err
		}
		defer stores.Close()

		removed, err := janitor.New(stores.Pruners, "", env.Logger).RunOnce(ctx)

		kinds := make([]string, 0, len(removed))
		for kind := range removed {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(env.Out, "%s: removed %d\n", kind, removed[kind])
		}
		return err
	}

	return cmd
}

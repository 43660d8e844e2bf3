package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/platinummonkey/campusauth/pkg/app"
	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/config"
	"github.com/platinummonkey/campusauth/pkg/observability"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// StoreOpener opens the configured backends.
type StoreOpener func(ctx context.Context) (*app.Stores, error)

// Env is what the admin commands operate on.
type Env struct {
	Config *config.Config
	Open   StoreOpener
	Logger *observability.Logger
	Out    io.Writer
}

// NewEnv returns an Env that opens the stores named in cfg.
func NewEnv(cfg *config.Config, logger *observability.Logger, out io.Writer) *Env {
	return &Env{
		Config: cfg,
		Logger: logger,
		Out:    out,
		Open: func(ctx context.Context) (*app.Stores, error) {
			return app.OpenStores(ctx, cfg.Storage, logger)
		},
	}
}

func (e *Env) hasher() *auth.BcryptHasher {
	return auth.NewBcryptHasher(e.Config.Auth.BcryptCost)
}

// NewRootCommand creates the portal-admin root command
func NewRootCommand(env *Env) *Command {
	root := &Command{
		Name:        "portal-admin",
		Description: "Portal auth administration",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("portal-admin", flag.ContinueOnError),
	}

	for _, cmd := range []*Command{
		newCreateUserCommand(env),
		newSetStatusCommand(env),
		newHashPasswordCommand(env),
		newPruneCommand(env),
		newResetLimitCommand(env),
	} {
		cmd.Flags.SetOutput(env.Out)
		root.Subcommands[cmd.Name] = cmd
	}

	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		c.usage(out)
		return nil
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(ctx, args[1:])
	}

	c.usage(out)
	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage(out io.Writer) {
	fmt.Fprintf(out, "Usage: %s <command> [flags]\n\n", c.Name)
	fmt.Fprintf(out, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
}

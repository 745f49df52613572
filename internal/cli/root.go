package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Storage overrides. Empty values keep the configured setting.
	Backend   string
	Path      string
	RedisAddr string
	Simulate  bool

	// Metrics dumps the formsync metrics to stderr when a command that
	// opened storage finishes.
	Metrics bool

	// Getenv looks up environment variables. Nil means os.Getenv.
	Getenv func(string) string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func (o *RootOptions) getenv() func(string) string {
	if o.Getenv != nil {
		return o.Getenv
	}
	return os.Getenv
}

// NewRootCommand creates the root command for the formsync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formsync",
		Short: "Build forms and collect responses",
		Long: `formsync edits form definitions and collects responses against a
persisted forms document.

Storage is selected by configuration (--config, FORMSYNC_* environment
variables) or by the --backend and --path flags.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (memory|sqlite|badger|redis)")
	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "storage path for sqlite and badger")
	cmd.PersistentFlags().StringVar(&opts.RedisAddr, "redis-addr", "", "redis server address")
	cmd.PersistentFlags().BoolVar(&opts.Simulate, "simulate", false, "simulate storage latency and failures")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "write storage and debounce metrics to stderr on exit")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewTitleCommand(opts))
	cmd.AddCommand(NewQuestionCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewAnswerCommand(opts))
	cmd.AddCommand(NewRespondCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

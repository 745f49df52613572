package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/port"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	At   int64 // print the value stored at this revision
	Keys bool  // list stored keys instead of revisions
}

// RevisionSummary is one row of the history command.
type RevisionSummary struct {
	Seq       int64  `json:"seq"`
	Size      int    `json:"size"`
	WrittenAt string `json:"written_at,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [key]",
		Short: "List stored revisions of a key",
		Long: `List every write of a key, oldest first. Requires the sqlite backend,
which keeps a revision log. The key defaults to the forms document.

Example:
  formsync history
  formsync history --at 3
  formsync history --keys`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := port.FormsKey
			if len(args) == 1 {
				key = args[0]
			}

			e, err := openEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.sqlite == nil {
				return e.out.Fail(ExitCommandError, ErrCodeConfig, fmt.Sprintf("history requires the sqlite backend, not %s", e.cfg.Backend), nil, nil, nil)
			}

			if opts.Keys {
				keys, err := e.sqlite.Keys(e.ctx)
				if err != nil {
					return e.out.Fail(ExitFailure, ErrCodeStorage, "failed to list keys", err, nil, nil)
				}
				text := strings.Join(keys, "\n")
				if len(keys) > 0 {
					text += "\n"
				}
				return e.out.Success(keys, text, nil)
			}

			if opts.At > 0 {
				value, err := e.sqlite.At(e.ctx, key, opts.At)
				if err != nil {
					return e.out.Fail(ExitFailure, ErrCodeStorage, "failed to read revision", err, nil, nil)
				}
				if value == nil {
					return e.out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no revision of %q at %d", key, opts.At), nil, nil, nil)
				}
				return e.out.Success(string(value), string(value)+"\n", nil)
			}

			revs, err := e.sqlite.History(e.ctx, key)
			if err != nil {
				return e.out.Fail(ExitFailure, ErrCodeStorage, "failed to read history", err, nil, nil)
			}

			rows := make([]RevisionSummary, len(revs))
			var buf strings.Builder
			tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tSIZE\tWRITTEN")
			for i, r := range revs {
				rows[i] = RevisionSummary{Seq: r.Seq, Size: r.Size}
				written := "-"
				if !r.WrittenAt.IsZero() {
					rows[i].WrittenAt = r.WrittenAt.Format(time.RFC3339)
					written = rows[i].WrittenAt
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\n", r.Seq, r.Size, written)
			}
			tw.Flush()
			return e.out.Success(rows, buf.String(), nil)
		},
	}

	cmd.Flags().Int64Var(&opts.At, "at", 0, "print the value written at this revision")
	cmd.Flags().BoolVar(&opts.Keys, "keys", false, "list stored keys")
	cmd.MarkFlagsMutuallyExclusive("at", "keys")
	return cmd
}

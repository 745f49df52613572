package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/config"
	"github.com/roach88/formsync/internal/model"
)

// FormSummary is one row of the list command.
type FormSummary struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Questions          int    `json:"questions"`
	Published          bool   `json:"published"`
	ResponsesSubmitted bool   `json:"responses_submitted"`
}

func summarize(f model.Form) FormSummary {
	return FormSummary{
		ID:                 f.ID,
		Title:              f.Title,
		Questions:          len(f.Questions),
		Published:          f.IsSubmitted,
		ResponsesSubmitted: f.ResponsesSubmitted(),
	}
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Prepare storage and create the first form",
		Long: `Open the configured storage and load the forms document. When the
document is empty a form titled "Form 1" is created.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			data := map[string]interface{}{
				"backend": e.cfg.Backend,
				"forms":   len(e.svc.Forms()),
			}
			if e.cfg.Backend == config.BackendSQLite || e.cfg.Backend == config.BackendBadger {
				data["path"] = e.cfg.StoragePath()
			}
			text := fmt.Sprintf("Storage ready (%s), %d form(s)\n", e.cfg.Backend, len(e.svc.Forms()))
			return e.out.Success(data, text, e.notes())
		},
	}
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "new",
		Short:         "Create a form",
		Long:          `Create a form titled "Form N+1" holding one empty question.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			form, err := e.svc.CreateForm(e.ctx)
			if err != nil {
				return e.out.Fail(ExitFailure, ErrCodeStorage, "failed to create form", err, nil, e.notes())
			}
			return e.out.Success(summarize(form), fmt.Sprintf("Created %s (%s)\n", form.Title, form.ID), e.notes())
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List forms",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			forms := e.svc.Forms()
			rows := make([]FormSummary, len(forms))
			for i, f := range forms {
				rows[i] = summarize(f)
			}

			var buf strings.Builder
			tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tQUESTIONS\tPUBLISHED\tRESPONSES")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.Title, r.Questions, yesNo(r.Published), yesNo(r.ResponsesSubmitted))
			}
			tw.Flush()

			return e.out.Success(rows, buf.String(), e.notes())
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <form-id>",
		Short:         "Show a form with its questions and responses",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			form, err := e.form(args[0])
			if err != nil {
				return err
			}
			return e.out.Success(form, describeForm(form), e.notes())
		},
	}
}

// NewTitleCommand creates the title command.
func NewTitleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "title <form-id> <title>",
		Short:         "Rename a form",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			form, err := e.form(args[0])
			if err != nil {
				return err
			}
			if err := e.svc.UpdateFormTitle(e.ctx, form.ID, args[1]); err != nil {
				return e.out.Fail(ExitFailure, ErrCodeStorage, "failed to rename form", err, nil, e.notes())
			}
			form, _ = e.svc.Form(form.ID)
			return e.out.Success(summarize(form), fmt.Sprintf("Renamed %s to %q\n", form.ID, form.Title), e.notes())
		},
	}
}

func describeForm(f model.Form) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", f.Title, f.ID)
	fmt.Fprintf(&b, "created:   %s\n", f.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "published: %s\n", yesNo(f.IsSubmitted))
	fmt.Fprintln(&b, "questions:")
	for i, q := range f.Questions {
		fmt.Fprintf(&b, "  %d. %s [%s]\n", i, displayTitle(q.QuestionTitle), questionTraits(q))
	}
	if f.Responses == nil {
		fmt.Fprintln(&b, "responses: none")
		return b.String()
	}
	fmt.Fprintf(&b, "responses: submitted=%s\n", yesNo(f.Responses.IsSubmitted))
	for _, q := range f.Questions {
		key := model.ResponseKey(q.QuestionTitle)
		if v, ok := f.Responses.Values[key]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", key, v)
		}
	}
	return b.String()
}

func questionTraits(q model.Question) string {
	traits := []string{string(q.QuestionType)}
	if q.QuestionType == model.QuestionTypeNumber && q.NumberType != "" {
		traits[0] += "/" + string(q.NumberType)
		if q.NumberType == model.NumberTypeRange {
			traits = append(traits, fmt.Sprintf("%s..%s", bound(q.MinValue), bound(q.MaxValue)))
		}
	}
	if q.QuestionType == model.QuestionTypeSelect {
		traits = append(traits, strings.Join(q.DropdownOptions, "|"))
	}
	if q.IsRequired {
		traits = append(traits, "required")
	}
	if q.IsHidden {
		traits = append(traits, "hidden")
	}
	return strings.Join(traits, ", ")
}

func bound(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func displayTitle(t string) string {
	if strings.TrimSpace(t) == "" {
		return "(untitled)"
	}
	return t
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

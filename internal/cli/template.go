package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/template"
)

// TemplateSummary describes one loaded template.
type TemplateSummary struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Questions int    `json:"questions"`
	FormID    string `json:"form_id,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file-or-dir>",
		Short: "Validate CUE form templates",
		Long: `Validate CUE form templates without touching storage.

Each form is checked against the template schema and the question rules
used by the builder.

Exit codes:
  0 - All templates are valid
  1 - One or more templates are invalid
  2 - Path not found`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			templates, err := loadTemplates(out, args[0])
			if err != nil {
				return err
			}

			rows := make([]TemplateSummary, len(templates))
			var text strings.Builder
			for i, t := range templates {
				rows[i] = TemplateSummary{Name: t.Name, Title: t.Title, Questions: len(t.Questions)}
				fmt.Fprintf(&text, "✓ %s: %q, %d question(s)\n", t.Name, t.Title, len(t.Questions))
			}
			return out.Success(rows, text.String(), nil)
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file-or-dir>",
		Short: "Create forms from CUE templates",
		Long: `Validate CUE form templates and create one form per template. Nothing
is created when any template is invalid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := loadTemplates(newFormatter(rootOpts, cmd), args[0])
			if err != nil {
				return err
			}

			e, err := openEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			rows := make([]TemplateSummary, 0, len(templates))
			var text strings.Builder
			for _, t := range templates {
				form, err := e.svc.CreateForm(e.ctx)
				if err == nil {
					err = e.svc.UpdateFormTitle(e.ctx, form.ID, t.Title)
				}
				if err == nil {
					err = e.svc.UpdateForm(e.ctx, form.ID, t.Questions)
				}
				if err != nil {
					return e.out.Fail(ExitFailure, ErrCodeStorage, fmt.Sprintf("failed to import %s", t.Name), err, nil, e.notes())
				}
				e.out.VerboseLog("imported %s as %s", t.Name, form.ID)
				rows = append(rows, TemplateSummary{Name: t.Name, Title: t.Title, Questions: len(t.Questions), FormID: form.ID})
				fmt.Fprintf(&text, "Imported %s as %s (%s)\n", t.Name, t.Title, form.ID)
			}
			return e.out.Success(rows, text.String(), e.notes())
		},
	}
}

func loadTemplates(out *OutputFormatter, path string) ([]template.Template, error) {
	templates, errs := template.NewLoader().Load(path)
	if len(errs) == 0 {
		return templates, nil
	}

	lines := make([]string, len(errs))
	exitCode := ExitFailure
	for i, err := range errs {
		lines[i] = err.Error()
		var le *template.LoadError
		if errors.As(err, &le) && le.Code == template.ErrCodeNotFound {
			exitCode = ExitCommandError
		}
	}
	return nil, out.Fail(exitCode, ErrCodeTemplate, fmt.Sprintf("%d template problem(s)", len(errs)), nil, lines, nil)
}

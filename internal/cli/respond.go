package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/formsync"
	"github.com/roach88/formsync/internal/validate"
)

// AnswerResult is the output of the answer command.
type AnswerResult struct {
	FormID string            `json:"form_id"`
	Values map[string]string `json:"values"`
	Errors map[string]string `json:"errors,omitempty"`
	Valid  bool              `json:"valid"`
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <form-id>",
		Short: "Submit a form so it can collect responses",
		Long: `Validate every question and submit the form. A submitted form can no
longer be edited and starts accepting responses.`,
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
			b, err := e.builder(form.ID)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Submit(e.ctx); err != nil {
				return submitFailure(e, "form was not published", err)
			}
			saved, _ := e.svc.Form(form.ID)
			return e.out.Success(summarize(saved), fmt.Sprintf("Published %s (%s)\n", saved.Title, saved.ID), e.notes())
		},
	}
}

// NewAnswerCommand creates the answer command.
func NewAnswerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <form-id> <question-title>=<value>...",
		Short: "Record answers for a published form",
		Long: `Record one or more answers and save them. Each answer is validated on
its own; invalid answers are still saved and reported.

Example:
  formsync answer 0190a6 Name=Ada "Email=ada@example.com"`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			type pair struct{ title, value string }
			pairs := make([]pair, 0, len(args)-1)
			for _, arg := range args[1:] {
				title, value, ok := strings.Cut(arg, "=")
				if !ok {
					return NewExitError(ExitCommandError, fmt.Sprintf("answer %q must have the form title=value", arg))
				}
				pairs = append(pairs, pair{title, value})
			}

			e, err := openEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			form, err := e.form(args[0])
			if err != nil {
				return err
			}
			r, err := e.responder(form.ID)
			if err != nil {
				return err
			}
			defer r.Close()

			for _, p := range pairs {
				if err := r.HandleChange(p.title, p.value); err != nil {
					return e.out.Fail(ExitCommandError, ErrCodeNotFound, "failed to record answer", err, nil, e.notes())
				}
			}
			r.Flush()
			if e.saveFailed() {
				return e.out.Fail(ExitFailure, ErrCodeStorage, formsync.MsgSaveFailed, nil, nil, e.notes())
			}

			result := AnswerResult{
				FormID: form.ID,
				Values: r.Values(),
				Errors: r.Errors(),
				Valid:  r.IsFormValid(),
			}
			var text strings.Builder
			fmt.Fprintf(&text, "Saved %d answer(s) for %s\n", len(pairs), form.ID)
			for _, line := range errorLines(result.Errors) {
				fmt.Fprintf(&text, "  %s\n", line)
			}
			if !result.Valid {
				fmt.Fprintln(&text, "Form is not ready to submit")
			}
			return e.out.Success(result, text.String(), e.notes())
		},
	}
}

// NewRespondCommand creates the respond command.
func NewRespondCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "respond <form-id>",
		Short: "Submit the recorded answers",
		Long: `Validate every recorded answer against the whole form and submit the
responses. Responses can be submitted again after further answers.`,
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
			r, err := e.responder(form.ID)
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.Submit(e.ctx); err != nil {
				return submitFailure(e, "responses were not submitted", err)
			}
			return e.out.Success(AnswerResult{FormID: form.ID, Values: r.Values(), Valid: true},
				fmt.Sprintf("Submitted responses for %s\n", form.ID), e.notes())
		},
	}
}

// submitFailure reports a failed builder or respondent submission.
func submitFailure(e *env, message string, err error) error {
	var formErr *validate.FormError
	switch {
	case errors.As(err, &formErr):
		return e.out.Fail(ExitFailure, ErrCodeInvalid, message, err, errorLines(formErr.Errors), e.notes())
	case errors.Is(err, formsync.ErrAlreadySubmitted), errors.Is(err, formsync.ErrSubmissionInFlight):
		return e.out.Fail(ExitFailure, ErrCodeRejected, message, err, nil, e.notes())
	default:
		return e.out.Fail(ExitFailure, ErrCodeStorage, message, err, nil, e.notes())
	}
}


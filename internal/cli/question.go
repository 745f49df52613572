package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/builder"
	"github.com/roach88/formsync/internal/formsync"
	"github.com/roach88/formsync/internal/model"
)

// QuestionAddOptions holds flags for the question add command.
type QuestionAddOptions struct {
	*RootOptions
	Title      string
	Type       string
	NumberType string
	Required   bool
}

// NewQuestionCommand creates the question command group.
func NewQuestionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "question",
		Short: "Edit the questions of a form",
	}
	cmd.AddCommand(newQuestionSetCommand(rootOpts))
	cmd.AddCommand(newQuestionAddCommand(rootOpts))
	cmd.AddCommand(newQuestionDeleteCommand(rootOpts))
	return cmd
}

func newQuestionSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <form-id> <index> <field> <value>",
		Short: "Change one field of a question",
		Long: `Change one field of a question and save the form.

Fields are questionTitle, questionType, isRequired, isHidden, helperText,
numberType, minValue, maxValue, defaultValue, dropdownOptions (comma
separated), isSpecialCharsAllowed and isDescription.

Example:
  formsync question set 0190a6 0 questionTitle "Email address"
  formsync question set 0190a6 0 questionType email`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid question index", err)
			}
			field, err := model.ParseField(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid field", err)
			}
			return editQuestions(cmd, rootOpts, args[0], func(e *env, b *builder.Session) error {
				if err := b.HandleChange(index, field, args[3]); err != nil {
					return rejectEdit(e, "failed to change question", err)
				}
				return nil
			})
		},
	}
}

func newQuestionAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QuestionAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <form-id>",
		Short: "Append a question",
		Long: `Append a question and save the form. Questions can only be added
while every existing question is valid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editQuestions(cmd, rootOpts, args[0], func(e *env, b *builder.Session) error {
				if !b.AddQuestion() {
					return e.out.Fail(ExitFailure, ErrCodeRejected, "cannot add a question while the form is submitted or has invalid questions", nil, b.Errors(), e.notes())
				}
				i := len(b.Questions()) - 1
				changes := []struct {
					field model.Field
					value any
				}{
					{model.FieldQuestionTitle, opts.Title},
					{model.FieldQuestionType, opts.Type},
					{model.FieldNumberType, opts.NumberType},
					{model.FieldIsRequired, opts.Required},
				}
				for _, c := range changes {
					if err := b.HandleChange(i, c.field, c.value); err != nil {
						return rejectEdit(e, "failed to set up question", err)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "question title (required)")
	cmd.Flags().StringVar(&opts.Type, "type", string(model.QuestionTypeText), "question type (text|number|select|email)")
	cmd.Flags().StringVar(&opts.NumberType, "number-type", "", "number type for number questions (number|range|year)")
	cmd.Flags().BoolVar(&opts.Required, "required", false, "answer is required")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newQuestionDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <form-id> <index>",
		Short: "Remove a question",
		Long: `Remove a question and save the form. The first question cannot be
removed, and nothing can be removed once the form or its responses are
submitted.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid question index", err)
			}
			return editQuestions(cmd, rootOpts, args[0], func(e *env, b *builder.Session) error {
				if !b.DeleteQuestion(index) {
					return e.out.Fail(ExitFailure, ErrCodeRejected, fmt.Sprintf("question %d cannot be deleted", index), nil, nil, e.notes())
				}
				return nil
			})
		},
	}
}

// editQuestions opens a builder for the form, applies edit and writes the
// result immediately instead of waiting for the debounce.
func editQuestions(cmd *cobra.Command, rootOpts *RootOptions, ref string, edit func(*env, *builder.Session) error) error {
	e, err := openEnv(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer e.Close()

	form, err := e.form(ref)
	if err != nil {
		return err
	}
	b, err := e.builder(form.ID)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := edit(e, b); err != nil {
		return err
	}
	if errs := b.Errors(); len(errs) > 0 {
		return e.out.Fail(ExitFailure, ErrCodeInvalid, "question is invalid and was not saved", nil, errorLines(errs), e.notes())
	}

	b.Flush()
	if e.saveFailed() {
		return e.out.Fail(ExitFailure, ErrCodeStorage, formsync.MsgSaveFailed, nil, nil, e.notes())
	}

	saved, _ := e.svc.Form(form.ID)
	return e.out.Success(saved, describeForm(saved), e.notes())
}

func rejectEdit(e *env, message string, err error) error {
	code := ErrCodeInvalid
	switch {
	case errors.Is(err, formsync.ErrAlreadySubmitted), errors.Is(err, formsync.ErrSubmissionInFlight):
		code = ErrCodeRejected
	case errors.Is(err, builder.ErrQuestionIndex):
		return e.out.Fail(ExitCommandError, ErrCodeNotFound, message, err, nil, e.notes())
	}
	return e.out.Fail(ExitFailure, code, message, err, nil, e.notes())
}

// errorLines renders an error map as sorted "key: message" lines.
func errorLines(errs map[string]string) []string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s: %s", k, errs[k])
	}
	return lines
}

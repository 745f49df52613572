package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/formsync/internal/model"
)

var (
	emailPattern        = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	specialCharsPattern = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
	yearPattern         = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// FieldError is an answer that failed a rule. Key is the response key of the
// question the answer belongs to.
type FieldError struct {
	Key     string
	Message string
}

// Error implements the error interface. It returns the message verbatim so
// it can be shown inline.
func (e *FieldError) Error() string {
	return e.Message
}

// FormError is returned when whole-form validation fails. Errors maps
// response keys to messages.
type FormError struct {
	Errors map[string]string
}

// Error implements the error interface.
func (e *FormError) Error() string {
	return fmt.Sprintf("form has %d invalid answer(s)", len(e.Errors))
}

// IsValidEmail reports whether s looks like local@domain.tld.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// HasSpecialCharacters reports whether s contains a disallowed punctuation
// character.
func HasSpecialCharacters(s string) bool {
	return specialCharsPattern.MatchString(s)
}

// IsValidYear reports whether s is a four digit year between 1900 and 2099.
func IsValidYear(s string) bool {
	return yearPattern.MatchString(s)
}

// Answer validates one value for one question during response collection.
// It returns nil or a *FieldError carrying the message to display.
func Answer(q model.Question, value string) error {
	return answer(q, value, MsgRequired)
}

// WholeForm validates every question against its current value. The
// returned map holds one message per failing question, keyed by response
// key; valid is true when the map is empty.
func WholeForm(qs []model.Question, values map[string]string) (errs map[string]string, valid bool) {
	errs = make(map[string]string)
	for _, q := range qs {
		key := model.ResponseKey(q.QuestionTitle)
		if err := answer(q, values[key], MsgFieldRequired); err != nil {
			errs[key] = err.(*FieldError).Message
		}
	}
	return errs, len(errs) == 0
}

func answer(q model.Question, value, requiredMsg string) error {
	msg := answerMessage(q, value, requiredMsg)
	if msg == "" {
		return nil
	}
	return &FieldError{Key: model.ResponseKey(q.QuestionTitle), Message: msg}
}

func answerMessage(q model.Question, value, requiredMsg string) string {
	if value == "" {
		if q.IsRequired {
			return requiredMsg
		}
		return ""
	}

	switch q.QuestionType {
	case model.QuestionTypeEmail:
		if !IsValidEmail(value) {
			return MsgInvalidEmail
		}
	case model.QuestionTypeText:
		if !q.IsSpecialCharsAllowed && HasSpecialCharacters(value) {
			return MsgSpecialChars
		}
	case model.QuestionTypeNumber:
		return numberMessage(q, value)
	}
	return ""
}

func numberMessage(q model.Question, value string) string {
	switch q.NumberType {
	case model.NumberTypeRange:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		outOfRange := err != nil ||
			(q.MinValue != nil && n < *q.MinValue) ||
			(q.MaxValue != nil && n > *q.MaxValue)
		if outOfRange {
			return fmt.Sprintf(msgRangeTemplate, formatBound(q.MinValue), formatBound(q.MaxValue))
		}
	case model.NumberTypeYear:
		if !IsValidYear(value) {
			return MsgInvalidYear
		}
	}
	return ""
}

func formatBound(b *float64) string {
	if b == nil {
		return "-"
	}
	return strconv.FormatFloat(*b, 'f', -1, 64)
}

package validate

// Builder messages.
const (
	MsgTitleRequired      = "Question title is required"
	MsgTypeRequired       = "Question type is required"
	MsgNumberTypeRequired = "Number type is required"

	MsgBlurTitleRequired      = "Question Title is required"
	MsgBlurTypeRequired       = "Question Type is required"
	MsgBlurNumberTypeRequired = "Number Type is required"
)

// Respondent messages.
const (
	// MsgRequired is reported by single-field validation.
	MsgRequired = "This field is required"
	// MsgFieldRequired is reported by whole-form validation.
	MsgFieldRequired = "Field is required"

	MsgInvalidEmail = "Please enter valid email"
	MsgSpecialChars = "Special characters are not allowed"
	MsgInvalidYear  = "Please enter a valid year (1900-2099)"
)

const (
	msgRangeTemplate    = "Please set value between %s and %s"
	msgDuplicateTitle   = "question title %q is used by questions %v"
	msgReservedTitle    = "question title %q collides with the reserved responses key"
	definitionSeparator = ", "
)

// Package template loads form definitions written in CUE.
//
// A template file declares one or more forms under the top-level "form"
// field:
//
//	form: contact: {
//		title: "Contact"
//		questions: [
//			{questionTitle: "Name", questionType: "text", isRequired: true},
//			{questionTitle: "Email", questionType: "email"},
//		]
//	}
//
// Every form is unified with an embedded #Form schema, so misspelled
// fields and unknown question types are rejected before any question rule
// runs.
package template

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/formsync/internal/model"
	"github.com/roach88/formsync/internal/validate"
)

//go:embed schema.cue
var schemaSource string

// Error codes.
const (
	ErrCodeGeneric         = "E001"
	ErrCodeNotFound        = "E002"
	ErrCodeNoFiles         = "E003"
	ErrCodeLoadFailed      = "E004"
	ErrCodeBuildFailed     = "E005"
	ErrCodeSchema          = "E101"
	ErrCodeInvalidQuestion = "E102"
	ErrCodeDuplicateTitle  = "E103"
	ErrCodeNoForms         = "E104"
)

// Template is one named form definition.
type Template struct {
	Name      string
	Title     string
	Questions []model.Question
}

// LoadError is a problem found while loading templates.
type LoadError struct {
	Code    string
	Form    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Form != "" {
		msg = fmt.Sprintf("form %s: %s", e.Form, e.Message)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Loader compiles templates against the embedded schema.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewLoader builds a Loader. It panics if the embedded schema does not
// compile.
func NewLoader() *Loader {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		panic(fmt.Sprintf("template schema: %v", err))
	}
	return &Loader{ctx: ctx, schema: schema.LookupPath(cue.ParsePath("#Form"))}
}

// Parse compiles a single CUE source. filename is used in positions only.
// Every problem is returned; templates that passed are returned alongside.
func (l *Loader) Parse(src []byte, filename string) ([]Template, []error) {
	v := l.ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, []error{cueError(ErrCodeBuildFailed, "", err)}
	}
	return l.extract(v)
}

// LoadFile reads and parses one .cue file.
func (l *Loader) LoadFile(path string) ([]Template, []error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: err.Error()}}
	}
	return l.Parse(src, path)
}

// LoadDir loads the CUE package in dir.
func (l *Loader) LoadDir(dir string) ([]Template, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("templates directory not found: %s", dir)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil || len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	if err := instances[0].Err; err != nil {
		return nil, []error{cueError(ErrCodeLoadFailed, "", err)}
	}

	v := l.ctx.BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return nil, []error{cueError(ErrCodeBuildFailed, "", err)}
	}
	return l.extract(v)
}

// Load dispatches to LoadDir or LoadFile depending on what path names.
func (l *Loader) Load(path string) ([]Template, []error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return l.LoadDir(path)
	}
	return l.LoadFile(path)
}

func (l *Loader) extract(v cue.Value) ([]Template, []error) {
	forms := v.LookupPath(cue.ParsePath("form"))
	if !forms.Exists() {
		return nil, []error{&LoadError{Code: ErrCodeNoForms, Message: "no forms declared", Pos: v.Pos()}}
	}

	iter, err := forms.Fields()
	if err != nil {
		return nil, []error{cueError(ErrCodeGeneric, "", err)}
	}

	var (
		out  []Template
		errs []error
	)
	for iter.Next() {
		name := iter.Selector().String()
		t, err := l.decode(name, iter.Value())
		if err != nil {
			errs = append(errs, err...)
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoForms, Message: "no forms declared", Pos: forms.Pos()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, errs
}

func (l *Loader) decode(name string, v cue.Value) (Template, []error) {
	unified := l.schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Template{}, []error{cueError(ErrCodeSchema, name, err)}
	}

	data, err := unified.MarshalJSON()
	if err != nil {
		return Template{}, []error{cueError(ErrCodeSchema, name, err)}
	}
	var raw struct {
		Title     string           `json:"title"`
		Questions []model.Question `json:"questions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Template{}, []error{&LoadError{Code: ErrCodeGeneric, Form: name, Message: err.Error(), Pos: v.Pos()}}
	}

	var errs []error
	for i := range raw.Questions {
		q := &raw.Questions[i]
		if q.DropdownOptions != nil {
			q.DropdownOptions = model.CleanOptions(q.DropdownOptions)
		}
		if msgs := validate.QuestionDefinition(*q); len(msgs) > 0 {
			errs = append(errs, &LoadError{
				Code:    ErrCodeInvalidQuestion,
				Form:    name,
				Message: fmt.Sprintf("question %d: %s", i, validate.JoinDefinitionErrors(msgs)),
				Pos:     v.LookupPath(cue.MakePath(cue.Str("questions"), cue.Index(i))).Pos(),
			})
		}
	}
	for _, msg := range validate.DuplicateTitles(raw.Questions) {
		errs = append(errs, &LoadError{Code: ErrCodeDuplicateTitle, Form: name, Message: msg, Pos: v.Pos()})
	}
	if len(errs) > 0 {
		return Template{}, errs
	}

	return Template{Name: name, Title: raw.Title, Questions: raw.Questions}, nil
}

// cueError converts a CUE error into a LoadError carrying its first
// position.
func cueError(code, form string, err error) *LoadError {
	le := &LoadError{Code: code, Form: form, Message: err.Error()}
	var cerr cueerrors.Error
	if errors.As(err, &cerr) {
		le.Message = cueerrors.Details(cerr, nil)
		if positions := cueerrors.Positions(cerr); len(positions) > 0 {
			le.Pos = positions[0]
		}
	}
	return le
}

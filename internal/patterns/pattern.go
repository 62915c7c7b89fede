// Package patterns holds the registry of per-framework line grammars and
// their re-run filter templates.
package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/newhook/testnorm/internal/testcase"
)

// ErrInvalidPattern is returned when a grammar definition fails validation.
var ErrInvalidPattern = errors.New("invalid pattern")

// Field is a semantic attribute a capture group can populate.
type Field int

const (
	FieldName Field = iota
	FieldFile
	FieldLine
	FieldStatus
	FieldMessage
	FieldSuite
	FieldClass
)

func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldFile:
		return "file"
	case FieldLine:
		return "line"
	case FieldStatus:
		return "status"
	case FieldMessage:
		return "message"
	case FieldSuite:
		return "suite"
	case FieldClass:
		return "class"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// FieldMap maps each semantic field to a capture-group index. Zero means the
// field is not captured by the grammar.
type FieldMap struct {
	Name    int
	File    int
	Line    int
	Status  int
	Message int
	Suite   int
	Class   int
}

// Group returns the capture-group index for a field.
func (m FieldMap) Group(f Field) int {
	switch f {
	case FieldName:
		return m.Name
	case FieldFile:
		return m.File
	case FieldLine:
		return m.Line
	case FieldStatus:
		return m.Status
	case FieldMessage:
		return m.Message
	case FieldSuite:
		return m.Suite
	case FieldClass:
		return m.Class
	}
	return 0
}

var allFields = []Field{FieldName, FieldFile, FieldLine, FieldStatus, FieldMessage, FieldSuite, FieldClass}

// validate checks every declared field against the number of groups in re.
func (m FieldMap) validate(re *regexp.Regexp) error {
	if m.Name <= 0 {
		return fmt.Errorf("%w: name group is required", ErrInvalidPattern)
	}
	n := re.NumSubexp()
	for _, f := range allFields {
		g := m.Group(f)
		if g < 0 || g > n {
			return fmt.Errorf("%w: %s group %d out of range (pattern has %d groups)", ErrInvalidPattern, f, g, n)
		}
	}
	return nil
}

// Pattern is one compiled framework grammar. Patterns are immutable once
// built by the registry.
type Pattern struct {
	ID          string
	Family      string
	Description string
	Regex       *regexp.Regexp
	Fields      FieldMap
	// FixedStatus is used when the status is implied by the line variant
	// rather than captured.
	FixedStatus testcase.Status
	// FilterTemplate may reference ${name}, ${suite}, ${class} and ${file}.
	FilterTemplate string
	// Individual reports whether the framework can isolate and re-run a
	// single case.
	Individual bool
	RuleKinds  []string
}

// ReferencesContext reports whether the filter template uses any placeholder
// other than ${name}.
func (p Pattern) ReferencesContext() bool {
	return strings.Contains(p.FilterTemplate, "${suite}") ||
		strings.Contains(p.FilterTemplate, "${class}") ||
		strings.Contains(p.FilterTemplate, "${file}")
}

// Definition is the serializable form of a grammar, used for built-ins and
// for externally supplied patterns.
type Definition struct {
	ID           string   `toml:"id" yaml:"id" json:"id"`
	Family       string   `toml:"family" yaml:"family" json:"family,omitempty"`
	Description  string   `toml:"description" yaml:"description" json:"description,omitempty"`
	Regex        string   `toml:"regex" yaml:"regex" json:"regex"`
	NameGroup    int      `toml:"name_group" yaml:"name_group" json:"name_group"`
	FileGroup    int      `toml:"file_group" yaml:"file_group" json:"file_group,omitempty"`
	LineGroup    int      `toml:"line_group" yaml:"line_group" json:"line_group,omitempty"`
	StatusGroup  int      `toml:"status_group" yaml:"status_group" json:"status_group,omitempty"`
	MessageGroup int      `toml:"message_group" yaml:"message_group" json:"message_group,omitempty"`
	SuiteGroup   int      `toml:"suite_group" yaml:"suite_group" json:"suite_group,omitempty"`
	ClassGroup   int      `toml:"class_group" yaml:"class_group" json:"class_group,omitempty"`
	Status       string   `toml:"status" yaml:"status" json:"status,omitempty"`
	Filter       string   `toml:"filter" yaml:"filter" json:"filter,omitempty"`
	Individual   bool     `toml:"individual" yaml:"individual" json:"individual,omitempty"`
	RuleKinds    []string `toml:"rule_kinds" yaml:"rule_kinds" json:"rule_kinds,omitempty"`
}

// Compile validates a definition and builds a Pattern from it.
func Compile(def Definition) (Pattern, error) {
	id := strings.TrimSpace(def.ID)
	if id == "" {
		return Pattern{}, fmt.Errorf("%w: empty id", ErrInvalidPattern)
	}
	if def.Regex == "" {
		return Pattern{}, fmt.Errorf("%w: %s: empty regex", ErrInvalidPattern, id)
	}
	re, err := regexp.Compile(def.Regex)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, id, err)
	}

	fields := FieldMap{
		Name:    def.NameGroup,
		File:    def.FileGroup,
		Line:    def.LineGroup,
		Status:  def.StatusGroup,
		Message: def.MessageGroup,
		Suite:   def.SuiteGroup,
		Class:   def.ClassGroup,
	}
	if err := fields.validate(re); err != nil {
		return Pattern{}, fmt.Errorf("%s: %w", id, err)
	}

	var fixed testcase.Status
	if def.Status != "" {
		fixed = testcase.NormalizeStatus(def.Status)
	}
	if fields.Status == 0 && fixed == "" {
		return Pattern{}, fmt.Errorf("%w: %s: needs a status group or a fixed status", ErrInvalidPattern, id)
	}

	family := def.Family
	if family == "" {
		family = id
	}

	return Pattern{
		ID:             id,
		Family:         family,
		Description:    def.Description,
		Regex:          re,
		Fields:         fields,
		FixedStatus:    fixed,
		FilterTemplate: def.Filter,
		Individual:     def.Individual,
		RuleKinds:      append([]string(nil), def.RuleKinds...),
	}, nil
}

// forge/pkg/validator/validator.go

// Package validator lints rule models before they are rendered or saved. The
// generators accept anything; this is where problems are reported.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"threathawk/forge/pkg/sysmon"
	"threathawk/forge/pkg/yarax"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Issue struct {
	Path     string   `json:"path"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Severity, i.Path, i.Message)
}

var (
	xmlNamePattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,127}$`)
	stringIDPattern   = regexp.MustCompile(`^\$[A-Za-z0-9_]*$`)
)

// ErrInvalidRule is returned by the Validate helpers when a lint pass finds at
// least one error-level issue.
var ErrInvalidRule = errors.New("rule has errors")

type Linter struct {
	validate *validator.Validate
}

func New() *Linter {
	v := validator.New()

	v.RegisterValidation("xml_name", func(fl validator.FieldLevel) bool {
		return xmlNamePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("yara_identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("yara_string_id", func(fl validator.FieldLevel) bool {
		return stringIDPattern.MatchString(fl.Field().String())
	})

	return &Linter{validate: v}
}

func (l *Linter) structIssues(s interface{}) []Issue {
	err := l.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Path: "", Severity: SeverityError, Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("failed %q check", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q check (%s)", fe.Tag(), fe.Param())
		}
		issues = append(issues, Issue{Path: fe.Namespace(), Severity: SeverityError, Message: msg})
	}
	return issues
}

func (l *Linter) check(value, tag string) bool {
	return l.validate.Var(value, tag) == nil
}

// LintRuleGroup reports structural errors and values the generator would write
// unescaped.
func (l *Linter) LintRuleGroup(g sysmon.RuleGroup) []Issue {
	issues := l.structIssues(g)

	if strings.ContainsAny(g.Name, `<&"`) {
		issues = append(issues, Issue{Path: "RuleGroup.Name", Severity: SeverityWarning, Message: "group name contains characters that are not escaped"})
	}

	for i, b := range g.Rules {
		path := fmt.Sprintf("RuleGroup.Rules[%d]", i)
		if b.EventType != "" && !sysmon.IsKnownEventType(b.EventType) {
			issues = append(issues, Issue{Path: path + ".EventType", Severity: SeverityWarning, Message: fmt.Sprintf("unknown event type %q", b.EventType)})
		}
		if b.EventType != "" && !l.check(b.EventType, "xml_name") {
			issues = append(issues, Issue{Path: path + ".EventType", Severity: SeverityError, Message: "not a valid element name"})
		}
		for j, c := range b.Conditions {
			cpath := fmt.Sprintf("%s.Conditions[%d]", path, j)
			if c.Field != "" && !l.check(c.Field, "xml_name") {
				issues = append(issues, Issue{Path: cpath + ".Field", Severity: SeverityError, Message: "not a valid element name"})
			}
			if c.ConditionType != "" && !sysmon.IsKnownConditionType(c.ConditionType) {
				issues = append(issues, Issue{Path: cpath + ".ConditionType", Severity: SeverityWarning, Message: fmt.Sprintf("unknown condition type %q", c.ConditionType)})
			}
			if strings.ContainsAny(c.Value, `<&"`) {
				issues = append(issues, Issue{Path: cpath + ".Value", Severity: SeverityWarning, Message: "value contains characters that are written without XML escaping"})
			}
		}
	}
	return issues
}

// LintRule reports structural errors in a YARA-X rule and warns about output
// the generator produces but YARA-X tooling may reject.
func (l *Linter) LintRule(r yarax.Rule) []Issue {
	issues := l.structIssues(r)

	if r.Header.Identifier != "" && !l.check(r.Header.Identifier, "yara_identifier") {
		issues = append(issues, Issue{Path: "Rule.Header.Identifier", Severity: SeverityError, Message: fmt.Sprintf("invalid rule identifier %q", r.Header.Identifier)})
	}
	for i, tag := range r.Header.Tags {
		if tag != "" && !l.check(tag, "yara_identifier") {
			issues = append(issues, Issue{Path: fmt.Sprintf("Rule.Header.Tags[%d]", i), Severity: SeverityError, Message: fmt.Sprintf("invalid tag %q", tag)})
		}
	}

	for i, m := range r.Meta {
		if !metaValueMatches(m) {
			issues = append(issues, Issue{Path: fmt.Sprintf("Rule.Meta[%d].Value", i), Severity: SeverityError, Message: fmt.Sprintf("value %v does not match type %s", m.Value, m.Type)})
		}
	}

	seen := map[string]bool{}
	for i, s := range r.Strings {
		path := fmt.Sprintf("Rule.Strings[%d]", i)
		if !l.check(s.Identifier, "yara_string_id") {
			issues = append(issues, Issue{Path: path + ".Identifier", Severity: SeverityError, Message: fmt.Sprintf("string identifier %q must start with $", s.Identifier)})
		}
		if seen[s.Identifier] && s.Identifier != "$" {
			issues = append(issues, Issue{Path: path + ".Identifier", Severity: SeverityError, Message: fmt.Sprintf("duplicate string identifier %q", s.Identifier)})
		}
		seen[s.Identifier] = true
		if s.Kind == yarax.KindText && strings.Contains(s.Value, `"`) {
			issues = append(issues, Issue{Path: path + ".Value", Severity: SeverityWarning, Message: "text value contains an unescaped quote"})
		}
		if s.Modifiers.Base64.Enabled || s.Modifiers.Base64Wide.Enabled {
			issues = append(issues, Issue{Path: path + ".Modifiers", Severity: SeverityWarning, Message: "base64 modifiers are not written to the rule text"})
		}
	}

	if strings.TrimSpace(r.Condition) == "" {
		issues = append(issues, Issue{Path: "Rule.Condition", Severity: SeverityWarning, Message: "condition is empty"})
	}
	if !conventionalOrder(r.Order) {
		issues = append(issues, Issue{Path: "Rule.Order", Severity: SeverityWarning, Message: "sections are not in meta, strings, condition order"})
	}
	return issues
}

func metaValueMatches(m yarax.MetaItem) bool {
	switch m.Type {
	case yarax.MetaString:
		_, ok := m.Value.(string)
		return ok
	case yarax.MetaBoolean:
		_, ok := m.Value.(bool)
		return ok
	case yarax.MetaInteger:
		switch v := m.Value.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	}
	// unknown types are reported by the struct check
	return true
}

func conventionalOrder(order []yarax.Section) bool {
	want := yarax.DefaultSectionOrder()
	if len(order) != len(want) {
		return false
	}
	for i := range want {
		if order[i] != want[i] {
			return false
		}
	}
	return true
}

// HasErrors reports whether any issue is error-level.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateRuleGroup returns ErrInvalidRule wrapped with the first error-level
// issue, or nil.
func (l *Linter) ValidateRuleGroup(g sysmon.RuleGroup) error {
	return firstError(l.LintRuleGroup(g))
}

func (l *Linter) ValidateRule(r yarax.Rule) error {
	return firstError(l.LintRule(r))
}

func firstError(issues []Issue) error {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return fmt.Errorf("%w: %s", ErrInvalidRule, i)
		}
	}
	return nil
}

// forge/pkg/yarax/codegen.go

package yarax

import (
	"fmt"
	"strconv"
	"strings"
)

// Generate renders r as YARA-X rule text. It never fails: sections are written
// in r.Order, empty ones are skipped, and the condition line is always present
// even when the expression is empty. The text has no trailing newline.
func Generate(r Rule) string {
	var sb strings.Builder

	if r.Header.IsGlobal {
		sb.WriteString("global ")
	}
	if r.Header.IsPrivate {
		sb.WriteString("private ")
	}
	sb.WriteString("rule " + r.Header.Identifier + " ")
	if len(r.Header.Tags) > 0 {
		sb.WriteString(": " + strings.Join(r.Header.Tags, " ") + " ")
	}
	sb.WriteString("{\n")

	for _, s := range r.Order {
		body := renderSection(r, s)
		if body == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(body)
	}

	sb.WriteString("}")
	return sb.String()
}

func renderSection(r Rule, s Section) string {
	switch s {
	case SectionMeta:
		return renderMeta(r.Meta)
	case SectionStrings:
		return renderStrings(r.Strings)
	case SectionCondition:
		return "  condition:\n    " + r.Condition + "\n"
	}
	return ""
}

// renderMeta writes the section header whenever there are items, even if every
// item is skipped for an empty key or a zero value.
func renderMeta(items []MetaItem) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("  meta:\n")
	for _, m := range items {
		if m.Key == "" || !truthy(m.Value) {
			continue
		}
		sb.WriteString("    " + m.Key + " = " + FormatMetaValue(m) + "\n")
	}
	return sb.String()
}

// FormatMetaValue quotes string-typed values and writes the rest as is.
// Numbers decoded from JSON arrive as float64 and are written without an
// exponent.
func FormatMetaValue(m MetaItem) string {
	if m.Type == MetaString {
		return `"` + fmt.Sprint(m.Value) + `"`
	}
	if f, ok := m.Value.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(m.Value)
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	return true
}

func renderStrings(items []StringItem) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("  strings:\n")
	for _, s := range items {
		if s.Identifier == "" || s.Value == "" {
			continue
		}
		sb.WriteString("    " + s.Identifier + " = " + formatPattern(s) + FormatModifiers(s.Modifiers) + "\n")
	}
	return sb.String()
}

func formatPattern(s StringItem) string {
	switch s.Kind {
	case KindText:
		return `"` + s.Value + `"`
	case KindHex:
		return s.Value
	case KindRegexp:
		return "/" + s.Value + "/"
	}
	return ""
}

// FormatModifiers returns the modifier keywords, each with a leading space, in
// the fixed order nocase ascii wide fullword private xor.
func FormatModifiers(m Modifiers) string {
	var sb strings.Builder
	if m.Nocase {
		sb.WriteString(" nocase")
	}
	if m.ASCII {
		sb.WriteString(" ascii")
	}
	if m.Wide {
		sb.WriteString(" wide")
	}
	if m.Fullword {
		sb.WriteString(" fullword")
	}
	if m.Private {
		sb.WriteString(" private")
	}
	if m.Xor.Enabled {
		fmt.Fprintf(&sb, " xor(%d-%d)", m.Xor.Min, m.Xor.Max)
	}
	return sb.String()
}

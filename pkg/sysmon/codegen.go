// forge/pkg/sysmon/codegen.go

package sysmon

import (
	"strings"
	"unicode"
)

const (
	SchemaVersion = "4.90"

	// TechniqueName is the placeholder written into every rule comment and name.
	TechniqueName = "TechniqueName, Txxxx"

	ruleIndent = "      "
)

// StripConditionType removes every whitespace rune: "contains any" -> "containsany".
func StripConditionType(conditionType string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, conditionType)
}

// Generate renders a complete Sysmon configuration document. It never fails;
// empty or partial groups still produce well-formed nesting. Values are written
// verbatim, without XML escaping.
func Generate(g RuleGroup) string {
	var sb strings.Builder
	writeOpen(&sb, g)
	for _, b := range g.Rules {
		writeBlock(&sb, b, ruleIndent)
	}
	writeClose(&sb)
	return sb.String()
}

// GenerateFragment renders a single block as an unindented rule fragment, the
// form ParseFragment accepts and MergeFragment splices.
func GenerateFragment(b EventFilterBlock) string {
	var sb strings.Builder
	writeBlock(&sb, b, "")
	return sb.String()
}

// WrapFragment places raw fragment text inside the fixed document nesting
// without interpreting it. It is the preview shown when an import fails.
func WrapFragment(g RuleGroup, fragment string) string {
	lines := strings.Split(fragment, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}

	var sb strings.Builder
	writeOpen(&sb, g)
	sb.WriteString(ruleIndent)
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n")
	writeClose(&sb)
	return sb.String()
}

func writeOpen(sb *strings.Builder, g RuleGroup) {
	sb.WriteString(`<Sysmon schemaversion="` + SchemaVersion + "\">\n")
	sb.WriteString("  <EventFiltering>\n")
	sb.WriteString(`    <RuleGroup name="` + g.Name + `" groupRelation="` + strings.ToLower(string(g.TopRelation)) + "\">\n")
}

func writeClose(sb *strings.Builder) {
	sb.WriteString("    </RuleGroup>\n")
	sb.WriteString("  </EventFiltering>\n")
	sb.WriteString("</Sysmon>\n")
}

func writeBlock(sb *strings.Builder, b EventFilterBlock, indent string) {
	sb.WriteString(indent + "<!-- " + TechniqueName + " -->\n")
	sb.WriteString(indent + `<Rule groupRelation="` + strings.ToLower(string(b.GroupRelation)) + `" name="` + TechniqueName + "\">\n")
	sb.WriteString(indent + "  <" + b.EventType + ` onmatch="` + string(b.OnMatch) + "\">\n")
	for _, c := range b.Conditions {
		sb.WriteString(indent + "    <" + c.Field + ` condition="` + StripConditionType(c.ConditionType) + `">`)
		sb.WriteString(c.Value)
		sb.WriteString("</" + c.Field + ">\n")
	}
	sb.WriteString(indent + "  </" + b.EventType + ">\n")
	sb.WriteString(indent + "</Rule>\n")
}

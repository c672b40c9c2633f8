// forge/pkg/sysmon/parser.go

package sysmon

import (
	"strings"

	"threathawk/forge/pkg/logging"
)

// ParseFragment recovers one block from a rule fragment such as GenerateFragment
// produces. It is a narrow scanner over the tags this package writes, not an XML
// parser: the first <Rule> tag carrying groupRelation supplies the relation, the
// first tag carrying onmatch supplies event type and onmatch, and every
// <Field condition="x">value</Field> element in document order becomes a
// condition. It reports false when any of the three is missing; a fragment
// without conditions is not imported.
func ParseFragment(fragment string) (EventFilterBlock, bool) {
	logging.Logger.Debug().Int("length", len(fragment)).Msg("Parsing rule fragment")

	relation, ok := findRuleRelation(fragment)
	if !ok {
		logging.Logger.Debug().Msg("No rule tag in fragment")
		return EventFilterBlock{}, false
	}

	eventType, onMatch, ok := findEventTag(fragment)
	if !ok {
		logging.Logger.Debug().Msg("No event type tag in fragment")
		return EventFilterBlock{}, false
	}

	block := EventFilterBlock{
		ID:            newBlockID(),
		EventType:     eventType,
		OnMatch:       OnMatch(onMatch),
		GroupRelation: Relation(strings.ToUpper(relation)),
	}

	for i := 0; i < len(fragment); {
		c, end, ok := scanCondition(fragment, i)
		if !ok {
			i++
			continue
		}
		c.ID = newConditionID()
		block.Conditions = append(block.Conditions, c)
		i = end
	}

	if len(block.Conditions) == 0 {
		logging.Logger.Debug().Str("eventType", eventType).Msg("Fragment has no conditions")
		return EventFilterBlock{}, false
	}

	logging.Logger.Debug().Str("eventType", eventType).Int("conditions", len(block.Conditions)).Msg("Parsed rule fragment")
	return block, true
}

func findRuleRelation(src string) (string, bool) {
	for i := 0; i < len(src); i++ {
		if src[i] != '<' {
			continue
		}
		t, _, ok := scanTag(src, i)
		if !ok || t.name != "Rule" {
			continue
		}
		if v, has := t.attrs["groupRelation"]; has && v != "" {
			return v, true
		}
	}
	return "", false
}

func findEventTag(src string) (string, string, bool) {
	for i := 0; i < len(src); i++ {
		if src[i] != '<' {
			continue
		}
		t, _, ok := scanTag(src, i)
		if !ok {
			continue
		}
		if v, has := t.attrs["onmatch"]; has && v != "" {
			return t.name, v, true
		}
	}
	return "", "", false
}

// scanCondition matches <Name condition="type">value</Name> at position i. The
// value must be non-empty and contain no '<'.
func scanCondition(src string, i int) (Condition, int, bool) {
	if src[i] != '<' {
		return Condition{}, i, false
	}
	t, end, ok := scanTag(src, i)
	if !ok || t.selfClosing {
		return Condition{}, i, false
	}
	condType, has := t.attrs["condition"]
	if !has || condType == "" {
		return Condition{}, i, false
	}

	lt := strings.IndexByte(src[end:], '<')
	if lt <= 0 {
		return Condition{}, i, false
	}
	value := src[end : end+lt]
	closing := "</" + t.name + ">"
	if !strings.HasPrefix(src[end+lt:], closing) {
		return Condition{}, i, false
	}

	return Condition{
		Field:         t.name,
		ConditionType: ConditionLabel(condType),
		Value:         value,
	}, end + lt + len(closing), true
}

type tag struct {
	name        string
	attrs       map[string]string
	selfClosing bool
}

// scanTag reads an opening tag starting at src[i] == '<'. Attribute values must
// be double quoted; the name must be followed by whitespace or the tag end.
func scanTag(src string, i int) (tag, int, bool) {
	if i >= len(src) || src[i] != '<' {
		return tag{}, i, false
	}
	p := i + 1
	start := p
	for p < len(src) && isWordByte(src[p]) {
		p++
	}
	if p == start {
		return tag{}, i, false
	}
	t := tag{name: src[start:p], attrs: map[string]string{}}

	for {
		ws := p
		for p < len(src) && isSpaceByte(src[p]) {
			p++
		}
		if p >= len(src) {
			return tag{}, i, false
		}
		switch {
		case src[p] == '>':
			return t, p + 1, true
		case strings.HasPrefix(src[p:], "/>"):
			t.selfClosing = true
			return t, p + 2, true
		}
		if p == ws {
			return tag{}, i, false
		}

		nameStart := p
		for p < len(src) && (isWordByte(src[p]) || src[p] == '-' || src[p] == ':') {
			p++
		}
		if p == nameStart || !strings.HasPrefix(src[p:], `="`) {
			return tag{}, i, false
		}
		key := src[nameStart:p]
		p += 2
		q := strings.IndexByte(src[p:], '"')
		if q < 0 {
			return tag{}, i, false
		}
		t.attrs[key] = src[p : p+q]
		p += q + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

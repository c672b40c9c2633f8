// forge/pkg/sysmon/merge.go

package sysmon

import (
	"errors"
	"strings"

	"threathawk/forge/pkg/logging"
)

// ErrNoInsertionPoint is wrapped by MergeFragment when the document has no
// closing RuleGroup tag.
var ErrNoInsertionPoint = errors.New("no closing RuleGroup tag to insert before")

const (
	closingRuleGroup = "</RuleGroup>"

	// FragmentIndent is added in front of every fragment line, relative to the
	// indentation of the closing tag.
	FragmentIndent = "  "
)

// MergeFragment splices fragment into document immediately before the last
// closing RuleGroup tag. Nothing else in the document is rewritten, so edits
// made elsewhere survive byte for byte.
func MergeFragment(document, fragment string) (string, error) {
	idx := strings.LastIndex(document, closingRuleGroup)
	if idx < 0 {
		err := logging.NewError(logging.ErrorTypeMerge, "document has no closing RuleGroup tag", ErrNoInsertionPoint,
			map[string]interface{}{"document_length": len(document)})
		logging.LogError(logging.Logger, err)
		return "", err
	}

	fragment = strings.TrimRight(fragment, "\r\n")
	if fragment == "" {
		return document, nil
	}

	lineStart := strings.LastIndexByte(document[:idx], '\n') + 1
	lead := document[lineStart:idx]
	if strings.TrimSpace(lead) != "" {
		lead = ""
	}

	var sb strings.Builder
	sb.Grow(len(document) + len(fragment) + 64)
	sb.WriteString(document[:idx])
	for i, line := range strings.Split(fragment, "\n") {
		if i > 0 {
			sb.WriteString("\n" + lead)
		}
		sb.WriteString(FragmentIndent + line)
	}
	sb.WriteString("\n" + lead)
	sb.WriteString(document[idx:])

	logging.Logger.Debug().Int("offset", idx).Msg("Merged rule fragment")
	return sb.String(), nil
}

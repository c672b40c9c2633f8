// forge/pkg/sysmon/load.go

package sysmon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"threathawk/forge/pkg/logging"
)

// ParseRuleGroup decodes a rule group from JSON or YAML. Missing ids are filled in.
func ParseRuleGroup(data []byte) (RuleGroup, error) {
	var g RuleGroup
	unmarshal := yaml.Unmarshal
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(data, &g); err != nil {
		return RuleGroup{}, logging.NewError(logging.ErrorTypeParse, "invalid rule group document", err, nil)
	}
	if g.TopRelation == "" {
		g.TopRelation = RelationOr
	}
	for i := range g.Rules {
		b := &g.Rules[i]
		if b.ID == "" {
			b.ID = newBlockID()
		}
		for j := range b.Conditions {
			if b.Conditions[j].ID == "" {
				b.Conditions[j].ID = newConditionID()
			}
		}
	}
	return g, nil
}

func LoadRuleGroup(path string) (RuleGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleGroup{}, fmt.Errorf("reading rule group %s: %w", path, err)
	}
	return ParseRuleGroup(data)
}

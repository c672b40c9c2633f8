// forge/pkg/yarax/load.go

package yarax

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"threathawk/forge/pkg/logging"
)

// ParseRule decodes a rule from JSON or YAML. An absent section order falls back
// to the default order and missing item ids are generated.
func ParseRule(data []byte) (Rule, error) {
	var r Rule
	unmarshal := yaml.Unmarshal
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(data, &r); err != nil {
		return Rule{}, logging.NewError(logging.ErrorTypeParse, "invalid YARA-X rule document", err, nil)
	}

	if len(r.Order) == 0 {
		r.Order = DefaultSectionOrder()
	}
	for i := range r.Meta {
		if r.Meta[i].ID == "" {
			r.Meta[i].ID = newID("meta")
		}
		if r.Meta[i].Type == "" {
			r.Meta[i].Type = MetaString
		}
	}
	for i := range r.Strings {
		if r.Strings[i].ID == "" {
			r.Strings[i].ID = newID("string")
		}
		if r.Strings[i].Kind == "" {
			r.Strings[i].Kind = KindText
		}
	}
	return r, nil
}

func LoadRule(path string) (Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rule{}, fmt.Errorf("reading rule %s: %w", path, err)
	}
	return ParseRule(data)
}

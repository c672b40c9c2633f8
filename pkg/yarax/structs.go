// forge/pkg/yarax/structs.go

// Package yarax models a single YARA-X rule and renders it to rule text.
package yarax

type MetaType string

const (
	MetaString  MetaType = "string"
	MetaInteger MetaType = "integer"
	MetaBoolean MetaType = "boolean"
)

type StringKind string

const (
	KindText   StringKind = "text"
	KindHex    StringKind = "hex"
	KindRegexp StringKind = "regexp"
)

// Section names a reorderable body section. The header is always first and is
// not part of the order.
type Section string

const (
	SectionMeta      Section = "meta"
	SectionStrings   Section = "strings"
	SectionCondition Section = "condition"
)

// DefaultSectionOrder returns the conventional meta, strings, condition order.
func DefaultSectionOrder() []Section {
	return []Section{SectionMeta, SectionStrings, SectionCondition}
}

type RuleHeader struct {
	IsGlobal   bool     `json:"isGlobal" yaml:"isGlobal"`
	IsPrivate  bool     `json:"isPrivate" yaml:"isPrivate"`
	Identifier string   `json:"identifier" yaml:"identifier" validate:"required"`
	Tags       []string `json:"tags" yaml:"tags" validate:"unique,dive,required"`
}

// MetaItem holds a string, integer or boolean value; Type decides how the value
// is written.
type MetaItem struct {
	ID    string      `json:"id" yaml:"id"`
	Key   string      `json:"key" yaml:"key"`
	Type  MetaType    `json:"type" yaml:"type" validate:"oneof=string integer boolean"`
	Value interface{} `json:"value" yaml:"value"`
}

type XorRange struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Min     int  `json:"min" yaml:"min" validate:"min=0,max=255"`
	Max     int  `json:"max" yaml:"max" validate:"min=0,max=255,gtefield=Min"`
}

type Base64Option struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Alphabet string `json:"alphabet" yaml:"alphabet"`
}

type Modifiers struct {
	Nocase     bool         `json:"nocase" yaml:"nocase"`
	ASCII      bool         `json:"ascii" yaml:"ascii"`
	Wide       bool         `json:"wide" yaml:"wide"`
	Fullword   bool         `json:"fullword" yaml:"fullword"`
	Private    bool         `json:"private" yaml:"private"`
	Xor        XorRange     `json:"xor" yaml:"xor"`
	Base64     Base64Option `json:"base64" yaml:"base64"`
	Base64Wide Base64Option `json:"base64wide" yaml:"base64wide"`
}

type StringItem struct {
	ID         string     `json:"id" yaml:"id"`
	Identifier string     `json:"identifier" yaml:"identifier"`
	Kind       StringKind `json:"type" yaml:"type" validate:"oneof=text hex regexp"`
	Value      string     `json:"value" yaml:"value"`
	Modifiers  Modifiers  `json:"modifiers" yaml:"modifiers"`
}

// Rule is the whole builder state for one rule. Order lists the body sections
// in emission order.
type Rule struct {
	Header    RuleHeader   `json:"header" yaml:"header"`
	Meta      []MetaItem   `json:"meta" yaml:"meta" validate:"dive"`
	Strings   []StringItem `json:"strings" yaml:"strings" validate:"dive"`
	Condition string       `json:"condition" yaml:"condition"`
	Order     []Section    `json:"order" yaml:"order"`
}

func metaKey(m MetaItem) string { return m.ID }

func stringKey(s StringItem) string { return s.ID }

// forge/pkg/yarax/builder.go

package yarax

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"threathawk/forge/pkg/ordering"
)

var (
	ErrEmptyTag        = errors.New("tag is empty")
	ErrDuplicateTag    = errors.New("tag already present")
	ErrTagNotFound     = errors.New("tag not found")
	ErrMetaNotFound    = errors.New("meta item not found")
	ErrUnknownMetaType = errors.New("unknown meta type")
	ErrStringNotFound  = errors.New("string definition not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownSection  = errors.New("unknown section")
)

// DefaultRule is the rule the builder opens with.
func DefaultRule() Rule {
	hex := NewStringItem(1)
	hex.Identifier = "$hex_string"
	hex.Kind = KindHex
	hex.Value = "{ E2 34 A1 C8 23 FB }"
	hex.Modifiers.ASCII = false

	text := NewStringItem(2)
	text.Identifier = "$text_string"
	text.Value = "evil.exe"
	text.Modifiers.Nocase = true

	return Rule{
		Header: RuleHeader{
			Identifier: "my_rule",
			Tags:       []string{"scanner", "threathawk"},
		},
		Meta: []MetaItem{
			{ID: newID("meta"), Key: "author", Type: MetaString, Value: "ThreatHawk"},
			{ID: newID("meta"), Key: "version", Type: MetaString, Value: "1.0"},
		},
		Strings:   []StringItem{hex, text},
		Condition: "$hex_string or $text_string",
		Order:     DefaultSectionOrder(),
	}
}

// NewStringItem returns the n-th added string: $s<n>, text, ascii, with the xor
// range preset to 0-255 but disabled.
func NewStringItem(n int) StringItem {
	return StringItem{
		ID:         newID("string"),
		Identifier: fmt.Sprintf("$s%d", n),
		Kind:       KindText,
		Modifiers: Modifiers{
			ASCII: true,
			Xor:   XorRange{Min: 0, Max: 255},
		},
	}
}

func newID(prefix string) string { return prefix + "-" + uuid.NewString() }

// ZeroMetaValue is the value a meta item takes after its type changes.
func ZeroMetaValue(t MetaType) (interface{}, error) {
	switch t {
	case MetaString:
		return "", nil
	case MetaInteger:
		return 0, nil
	case MetaBoolean:
		return false, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMetaType, t)
}

// AddTag appends a tag. Empty and duplicate tags are rejected.
func (r *Rule) AddTag(tag string) error {
	if tag == "" {
		return ErrEmptyTag
	}
	for _, t := range r.Header.Tags {
		if t == tag {
			return fmt.Errorf("%w: %s", ErrDuplicateTag, tag)
		}
	}
	r.Header.Tags = append(r.Header.Tags, tag)
	return nil
}

func (r *Rule) RemoveTag(tag string) error {
	i := ordering.IndexOf(r.Header.Tags, tag, ordering.Identity[string])
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTagNotFound, tag)
	}
	r.Header.Tags = append(r.Header.Tags[:i:i], r.Header.Tags[i+1:]...)
	return nil
}

// AddMeta appends an empty string-typed meta item.
func (r *Rule) AddMeta() MetaItem {
	m := MetaItem{ID: newID("meta"), Type: MetaString, Value: ""}
	r.Meta = append(r.Meta, m)
	return m
}

func (r *Rule) metaIndex(id string) (int, error) {
	i := ordering.IndexOf(r.Meta, id, metaKey)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrMetaNotFound, id)
	}
	return i, nil
}

func (r *Rule) RemoveMeta(id string) error {
	i, err := r.metaIndex(id)
	if err != nil {
		return err
	}
	r.Meta = append(r.Meta[:i:i], r.Meta[i+1:]...)
	return nil
}

func (r *Rule) SetMetaKey(id, key string) error {
	i, err := r.metaIndex(id)
	if err != nil {
		return err
	}
	r.Meta[i].Key = key
	return nil
}

// SetMetaType changes the type and resets the value to the new type's zero
// value, so type and value always agree.
func (r *Rule) SetMetaType(id string, t MetaType) error {
	i, err := r.metaIndex(id)
	if err != nil {
		return err
	}
	zero, err := ZeroMetaValue(t)
	if err != nil {
		return err
	}
	r.Meta[i].Type = t
	r.Meta[i].Value = zero
	return nil
}

func (r *Rule) SetMetaValue(id string, v interface{}) error {
	i, err := r.metaIndex(id)
	if err != nil {
		return err
	}
	r.Meta[i].Value = v
	return nil
}

// AddString appends a new text string named after the current count.
func (r *Rule) AddString() StringItem {
	s := NewStringItem(len(r.Strings) + 1)
	r.Strings = append(r.Strings, s)
	return s
}

func (r *Rule) RemoveString(id string) error {
	i := ordering.IndexOf(r.Strings, id, stringKey)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrStringNotFound, id)
	}
	r.Strings = append(r.Strings[:i:i], r.Strings[i+1:]...)
	return nil
}

// UpdateString replaces identifier, kind, value and modifiers of a string.
func (r *Rule) UpdateString(s StringItem) error {
	i := ordering.IndexOf(r.Strings, s.ID, stringKey)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrStringNotFound, s.ID)
	}
	r.Strings[i] = s
	return nil
}

func (r *Rule) MoveString(from int, targetID string) error {
	if from < 0 || from >= len(r.Strings) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, from)
	}
	r.Strings = ordering.Move(r.Strings, from, targetID, stringKey)
	return nil
}

// MoveSection reorders the body sections. Any order is accepted, including
// ones YARA-X tooling will refuse.
func (r *Rule) MoveSection(from int, target Section) error {
	if from < 0 || from >= len(r.Order) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, from)
	}
	switch target {
	case SectionMeta, SectionStrings, SectionCondition:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSection, target)
	}
	r.Order = ordering.Move(r.Order, from, target, ordering.Identity[Section])
	return nil
}

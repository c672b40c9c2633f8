// forge/pkg/sysmon/structs.go

// Package sysmon holds the Sysmon rule-group model and its text forms: the
// configuration generator, the best-effort fragment parser and the document merger.
package sysmon

// Relation is the boolean combination applied to a set of children.
type Relation string

const (
	RelationAnd Relation = "AND"
	RelationOr  Relation = "OR"
)

// OnMatch decides whether events matching a block are included or excluded.
type OnMatch string

const (
	OnMatchInclude OnMatch = "include"
	OnMatchExclude OnMatch = "exclude"
)

type RuleGroup struct {
	Name        string             `json:"name" yaml:"name"`
	TopRelation Relation           `json:"topRelation" yaml:"topRelation" validate:"oneof=AND OR"`
	Rules       []EventFilterBlock `json:"rules" yaml:"rules" validate:"dive"`
}

// EventFilterBlock is one <Rule> element. ID is a UI key and is never emitted.
type EventFilterBlock struct {
	ID            string      `json:"id" yaml:"id"`
	EventType     string      `json:"eventType" yaml:"eventType" validate:"required"`
	OnMatch       OnMatch     `json:"onmatch" yaml:"onmatch" validate:"oneof=include exclude"`
	GroupRelation Relation    `json:"groupRelation" yaml:"groupRelation" validate:"oneof=AND OR"`
	Conditions    []Condition `json:"conditions" yaml:"conditions" validate:"min=1,dive"`
}

// Condition is a single field test. ConditionType is the human-readable form
// ("contains any"); the emitted attribute has all whitespace removed.
type Condition struct {
	ID            string `json:"id" yaml:"id"`
	Field         string `json:"field" yaml:"field" validate:"required"`
	ConditionType string `json:"conditionType" yaml:"conditionType" validate:"required"`
	Value         string `json:"value" yaml:"value"`
}

func blockKey(b EventFilterBlock) string { return b.ID }

func conditionKey(c Condition) string { return c.ID }

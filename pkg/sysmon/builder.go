// forge/pkg/sysmon/builder.go

package sysmon

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"threathawk/forge/pkg/ordering"
)

var (
	ErrLastCondition      = errors.New("a rule must keep at least one condition")
	ErrBlockNotFound      = errors.New("rule block not found")
	ErrConditionNotFound  = errors.New("condition not found")
	ErrBlockIndexOutRange = errors.New("rule block index out of range")
)

const (
	DefaultGroupName = "CustomRuleGroup"
	defaultImage     = `C:\Windows\System32\powershell.exe`
)

func newBlockID() string { return "rule-" + uuid.NewString() }

func newConditionID() string { return "cond-" + uuid.NewString() }

// DefaultRuleGroup is the template the builder starts from.
func DefaultRuleGroup() RuleGroup {
	return RuleGroup{
		Name:        DefaultGroupName,
		TopRelation: RelationOr,
		Rules: []EventFilterBlock{
			{
				ID:            newBlockID(),
				EventType:     "ProcessCreate",
				OnMatch:       OnMatchInclude,
				GroupRelation: RelationAnd,
				Conditions: []Condition{
					{ID: newConditionID(), Field: "Image", ConditionType: "is", Value: defaultImage},
				},
			},
		},
	}
}

// NewBlock returns the block added by "add rule": ProcessCreate, include, OR,
// with one empty Image condition.
func NewBlock() EventFilterBlock {
	return EventFilterBlock{
		ID:            newBlockID(),
		EventType:     "ProcessCreate",
		OnMatch:       OnMatchInclude,
		GroupRelation: RelationOr,
		Conditions:    []Condition{NewCondition()},
	}
}

func NewCondition() Condition {
	return Condition{ID: newConditionID(), Field: "Image", ConditionType: "is"}
}

func (g *RuleGroup) blockIndex(blockID string) (int, error) {
	i := ordering.IndexOf(g.Rules, blockID, blockKey)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}
	return i, nil
}

// AddBlock appends a fresh block and returns it.
func (g *RuleGroup) AddBlock() EventFilterBlock {
	b := NewBlock()
	g.Rules = append(g.Rules, b)
	return b
}

// AppendBlock appends an existing block, typically one recovered by ParseFragment.
// A block without an id gets one.
func (g *RuleGroup) AppendBlock(b EventFilterBlock) {
	if b.ID == "" {
		b.ID = newBlockID()
	}
	g.Rules = append(g.Rules, b)
}

func (g *RuleGroup) RemoveBlock(blockID string) error {
	i, err := g.blockIndex(blockID)
	if err != nil {
		return err
	}
	g.Rules = append(g.Rules[:i:i], g.Rules[i+1:]...)
	return nil
}

// UpdateBlock replaces the event type, onmatch and relation of a block. Empty
// arguments leave the current value in place.
func (g *RuleGroup) UpdateBlock(blockID, eventType string, onMatch OnMatch, relation Relation) error {
	i, err := g.blockIndex(blockID)
	if err != nil {
		return err
	}
	b := &g.Rules[i]
	if eventType != "" {
		b.EventType = eventType
	}
	if onMatch != "" {
		b.OnMatch = onMatch
	}
	if relation != "" {
		b.GroupRelation = relation
	}
	return nil
}

func (g *RuleGroup) AddCondition(blockID string) (Condition, error) {
	i, err := g.blockIndex(blockID)
	if err != nil {
		return Condition{}, err
	}
	c := NewCondition()
	g.Rules[i].Conditions = append(g.Rules[i].Conditions, c)
	return c, nil
}

// RemoveCondition deletes a condition. Removing the last condition of a block is
// rejected with ErrLastCondition and leaves the block unchanged.
func (g *RuleGroup) RemoveCondition(blockID, conditionID string) error {
	i, err := g.blockIndex(blockID)
	if err != nil {
		return err
	}
	conds := g.Rules[i].Conditions
	j := ordering.IndexOf(conds, conditionID, conditionKey)
	if j < 0 {
		return fmt.Errorf("%w: %s", ErrConditionNotFound, conditionID)
	}
	if len(conds) <= 1 {
		return ErrLastCondition
	}
	g.Rules[i].Conditions = append(conds[:j:j], conds[j+1:]...)
	return nil
}

// UpdateCondition overwrites field, condition type and value of one condition.
func (g *RuleGroup) UpdateCondition(blockID string, c Condition) error {
	i, err := g.blockIndex(blockID)
	if err != nil {
		return err
	}
	conds := g.Rules[i].Conditions
	j := ordering.IndexOf(conds, c.ID, conditionKey)
	if j < 0 {
		return fmt.Errorf("%w: %s", ErrConditionNotFound, c.ID)
	}
	conds[j].Field = c.Field
	conds[j].ConditionType = c.ConditionType
	conds[j].Value = c.Value
	return nil
}

// MoveBlock moves the block at index from to the position of targetID. Unknown
// targets and self moves leave the order as it was.
func (g *RuleGroup) MoveBlock(from int, targetID string) error {
	if from < 0 || from >= len(g.Rules) {
		return fmt.Errorf("%w: %d", ErrBlockIndexOutRange, from)
	}
	g.Rules = ordering.Move(g.Rules, from, targetID, blockKey)
	return nil
}

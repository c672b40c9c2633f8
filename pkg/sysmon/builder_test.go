package sysmon

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuleGroup(t *testing.T) {
	g := DefaultRuleGroup()
	assert.Equal(t, "CustomRuleGroup", g.Name)
	assert.Equal(t, RelationOr, g.TopRelation)
	require.Len(t, g.Rules, 1)

	b := g.Rules[0]
	assert.True(t, strings.HasPrefix(b.ID, "rule-"))
	assert.Equal(t, "ProcessCreate", b.EventType)
	assert.Equal(t, OnMatchInclude, b.OnMatch)
	assert.Equal(t, RelationAnd, b.GroupRelation)
	require.Len(t, b.Conditions, 1)
	assert.Equal(t, `C:\Windows\System32\powershell.exe`, b.Conditions[0].Value)
}

func TestNewBlock(t *testing.T) {
	b := NewBlock()
	assert.Equal(t, RelationOr, b.GroupRelation)
	require.Len(t, b.Conditions, 1)
	assert.Equal(t, Condition{ID: b.Conditions[0].ID, Field: "Image", ConditionType: "is"}, b.Conditions[0])
	assert.NotEqual(t, b.ID, NewBlock().ID)
}

func TestBlockMutations(t *testing.T) {
	g := DefaultRuleGroup()
	first := g.Rules[0].ID

	added := g.AddBlock()
	require.Len(t, g.Rules, 2)

	require.NoError(t, g.UpdateBlock(added.ID, "DnsQuery", OnMatchExclude, ""))
	assert.Equal(t, "DnsQuery", g.Rules[1].EventType)
	assert.Equal(t, OnMatchExclude, g.Rules[1].OnMatch)
	assert.Equal(t, RelationOr, g.Rules[1].GroupRelation)

	require.NoError(t, g.MoveBlock(1, first))
	assert.Equal(t, added.ID, g.Rules[0].ID)
	assert.Equal(t, first, g.Rules[1].ID)

	require.NoError(t, g.RemoveBlock(first))
	require.Len(t, g.Rules, 1)
	assert.Equal(t, added.ID, g.Rules[0].ID)

	err := g.RemoveBlock("rule-missing")
	assert.True(t, errors.Is(err, ErrBlockNotFound))
	assert.True(t, errors.Is(g.MoveBlock(4, first), ErrBlockIndexOutRange))
}

func TestMoveBlockUnknownTargetKeepsOrder(t *testing.T) {
	g := DefaultRuleGroup()
	g.AddBlock()
	before := append([]EventFilterBlock(nil), g.Rules...)

	require.NoError(t, g.MoveBlock(0, "nope"))
	assert.Equal(t, before, g.Rules)
}

func TestConditionMutations(t *testing.T) {
	g := DefaultRuleGroup()
	blockID := g.Rules[0].ID
	firstCond := g.Rules[0].Conditions[0].ID

	c, err := g.AddCondition(blockID)
	require.NoError(t, err)
	require.Len(t, g.Rules[0].Conditions, 2)

	c.Field = "CommandLine"
	c.ConditionType = "contains any"
	c.Value = "-enc"
	require.NoError(t, g.UpdateCondition(blockID, c))
	assert.Equal(t, "CommandLine", g.Rules[0].Conditions[1].Field)
	assert.Equal(t, "contains any", g.Rules[0].Conditions[1].ConditionType)

	require.NoError(t, g.RemoveCondition(blockID, firstCond))
	require.Len(t, g.Rules[0].Conditions, 1)

	err = g.RemoveCondition(blockID, c.ID)
	assert.True(t, errors.Is(err, ErrLastCondition))
	assert.Len(t, g.Rules[0].Conditions, 1)

	err = g.RemoveCondition(blockID, "cond-missing")
	assert.True(t, errors.Is(err, ErrConditionNotFound))
	err = g.UpdateCondition(blockID, Condition{ID: "cond-missing"})
	assert.True(t, errors.Is(err, ErrConditionNotFound))
}

func TestRemoveBlockDoesNotAliasCallerSlice(t *testing.T) {
	g := DefaultRuleGroup()
	g.AddBlock()
	g.AddBlock()
	snapshot := g.Rules
	ids := []string{snapshot[0].ID, snapshot[1].ID, snapshot[2].ID}

	require.NoError(t, g.RemoveBlock(ids[1]))
	assert.Equal(t, ids, []string{snapshot[0].ID, snapshot[1].ID, snapshot[2].ID})
}

func TestAppendBlockAssignsID(t *testing.T) {
	g := RuleGroup{Name: "G", TopRelation: RelationAnd}
	g.AppendBlock(EventFilterBlock{EventType: "FileCreate"})
	require.Len(t, g.Rules, 1)
	assert.NotEmpty(t, g.Rules[0].ID)
}

func TestCatalog(t *testing.T) {
	assert.True(t, IsKnownEventType("ProcessCreate"))
	assert.False(t, IsKnownEventType("Bogus"))
	assert.Contains(t, FieldsFor("DnsQuery"), "QueryName")
	assert.Nil(t, FieldsFor("Bogus"))
	assert.Equal(t, "contains any", ConditionLabel("containsany"))
	assert.Equal(t, "not begin with", ConditionLabel("notbeginwith"))
	assert.Equal(t, "weird", ConditionLabel("weird"))
	assert.Equal(t, "Is", ConditionLabel("Is"))
	assert.Equal(t, "ContainsAny", ConditionLabel("ContainsAny"))

	for i := 1; i < len(EventTypes); i++ {
		assert.Less(t, EventTypes[i-1].ID, EventTypes[i].ID)
	}
}

func TestParseRuleGroup(t *testing.T) {
	yamlDoc := `
name: Suspicious
topRelation: AND
rules:
  - eventType: ProcessCreate
    onmatch: include
    groupRelation: OR
    conditions:
      - field: Image
        conditionType: end with
        value: mimikatz.exe
`
	g, err := ParseRuleGroup([]byte(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, "Suspicious", g.Name)
	assert.Equal(t, RelationAnd, g.TopRelation)
	require.Len(t, g.Rules, 1)
	assert.NotEmpty(t, g.Rules[0].ID)
	assert.NotEmpty(t, g.Rules[0].Conditions[0].ID)
	assert.Contains(t, Generate(g), `<Image condition="endwith">mimikatz.exe</Image>`)

	jsonDoc := "{\n\t\"name\": \"J\",\n\t\"rules\": []\n}"
	g, err = ParseRuleGroup([]byte(jsonDoc))
	require.NoError(t, err)
	assert.Equal(t, "J", g.Name)
	assert.Equal(t, RelationOr, g.TopRelation)

	_, err = ParseRuleGroup([]byte("{not json"))
	assert.Error(t, err)
}

func TestLoadRuleGroup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "group.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: FromFile\n"), 0o644))

	g, err := LoadRuleGroup(path)
	require.NoError(t, err)
	assert.Equal(t, "FromFile", g.Name)

	_, err = LoadRuleGroup(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIsKnownConditionType(t *testing.T) {
	assert.True(t, IsKnownConditionType("is"))
	assert.True(t, IsKnownConditionType("contains any"))
	assert.True(t, IsKnownConditionType("containsany"))
	assert.False(t, IsKnownConditionType("matches"))
}

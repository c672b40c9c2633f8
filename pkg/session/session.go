// forge/pkg/session/session.go

// Package session owns the rule models of one builder and re-renders the full
// text after every successful change. Callers from several goroutines (HTTP,
// websocket, the Redis loop) are serialised here.
package session

import (
	"fmt"
	"sync"
	"time"

	"threathawk/forge/pkg/logging"
	"threathawk/forge/pkg/sysmon"
	"threathawk/forge/pkg/yarax"
)

const (
	KindSysmon = "sysmon"
	KindYaraX  = "yarax"
)

// Preview is one rendered text pushed to listeners. Notice is set when the text
// is not a render of the model, e.g. after a failed import.
type Preview struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Notice string `json:"notice,omitempty"`
}

// Renderer receives every preview a session produces.
type Renderer interface {
	Publish(p Preview)
}

type Stats struct {
	Renders         int64     `json:"renders"`
	Mutations       int64     `json:"mutations"`
	FailedMutations int64     `json:"failedMutations"`
	Imports         int64     `json:"imports"`
	FailedImports   int64     `json:"failedImports"`
	LastRenderTime  time.Time `json:"lastRenderTime"`
}

// ImportFailedNotice is shown with the raw fragment when it cannot be imported.
const ImportFailedNotice = "Could not load the rule into the builder. You can still copy it from the preview."

type SysmonSession struct {
	mu       sync.Mutex
	group    sysmon.RuleGroup
	text     string
	stats    Stats
	renderer Renderer
}

func NewSysmonSession(g sysmon.RuleGroup, r Renderer) *SysmonSession {
	s := &SysmonSession{group: cloneGroup(g), renderer: r}
	s.render()
	return s
}

func (s *SysmonSession) render() {
	s.text = sysmon.Generate(s.group)
	s.stats.Renders++
	s.stats.LastRenderTime = time.Now()
	s.publish(Preview{Kind: KindSysmon, Text: s.text})
}

func (s *SysmonSession) publish(p Preview) {
	if s.renderer != nil {
		s.renderer.Publish(p)
	}
}

// Apply runs fn against a copy of the model. On success the copy replaces the
// model and the document is re-rendered; on error nothing changes.
func (s *SysmonSession) Apply(fn func(g *sysmon.RuleGroup) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneGroup(s.group)
	if err := fn(&next); err != nil {
		s.stats.FailedMutations++
		logging.Logger.Debug().Err(err).Msg("Sysmon mutation rejected")
		return err
	}
	s.group = next
	s.stats.Mutations++
	s.render()
	return nil
}

// Import parses fragment and appends the recovered block. When the fragment
// cannot be parsed the model is left alone and the preview shows the raw
// fragment wrapped in the document skeleton.
func (s *SysmonSession) Import(fragment string) (sysmon.EventFilterBlock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Imports++
	block, ok := sysmon.ParseFragment(fragment)
	if !ok {
		s.stats.FailedImports++
		s.text = sysmon.WrapFragment(s.group, fragment)
		s.publish(Preview{Kind: KindSysmon, Text: s.text, Notice: ImportFailedNotice})
		logging.Logger.Info().Int("length", len(fragment)).Msg("Fragment could not be imported")
		return sysmon.EventFilterBlock{}, false
	}

	s.group.AppendBlock(block)
	s.render()
	logging.Logger.Info().Str("eventType", block.EventType).Int("conditions", len(block.Conditions)).Msg("Imported fragment")
	return block, true
}

// Replace swaps in a whole new model.
func (s *SysmonSession) Replace(g sysmon.RuleGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.group = cloneGroup(g)
	s.stats.Mutations++
	s.render()
}

// Text is the current preview, normally the full render of the model.
func (s *SysmonSession) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Group returns a copy of the model.
func (s *SysmonSession) Group() sysmon.RuleGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneGroup(s.group)
}

func (s *SysmonSession) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Fragment renders the block at index as a standalone fragment.
func (s *SysmonSession) Fragment(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.group.Rules) {
		return "", fmt.Errorf("%w: %d", sysmon.ErrBlockIndexOutRange, index)
	}
	return sysmon.GenerateFragment(s.group.Rules[index]), nil
}

type YaraSession struct {
	mu       sync.Mutex
	rule     yarax.Rule
	text     string
	stats    Stats
	renderer Renderer
}

func NewYaraSession(r yarax.Rule, renderer Renderer) *YaraSession {
	s := &YaraSession{rule: cloneRule(r), renderer: renderer}
	s.render()
	return s
}

func (s *YaraSession) render() {
	s.text = yarax.Generate(s.rule)
	s.stats.Renders++
	s.stats.LastRenderTime = time.Now()
	if s.renderer != nil {
		s.renderer.Publish(Preview{Kind: KindYaraX, Text: s.text})
	}
}

func (s *YaraSession) Apply(fn func(r *yarax.Rule) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneRule(s.rule)
	if err := fn(&next); err != nil {
		s.stats.FailedMutations++
		logging.Logger.Debug().Err(err).Msg("YARA-X mutation rejected")
		return err
	}
	s.rule = next
	s.stats.Mutations++
	s.render()
	return nil
}

func (s *YaraSession) Replace(r yarax.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rule = cloneRule(r)
	s.stats.Mutations++
	s.render()
}

func (s *YaraSession) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *YaraSession) Rule() yarax.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRule(s.rule)
}

func (s *YaraSession) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func cloneGroup(g sysmon.RuleGroup) sysmon.RuleGroup {
	out := g
	if g.Rules != nil {
		out.Rules = make([]sysmon.EventFilterBlock, len(g.Rules))
		for i, b := range g.Rules {
			out.Rules[i] = b
			out.Rules[i].Conditions = append([]sysmon.Condition(nil), b.Conditions...)
		}
	}
	return out
}

func cloneRule(r yarax.Rule) yarax.Rule {
	out := r
	out.Header.Tags = append([]string(nil), r.Header.Tags...)
	out.Meta = append([]yarax.MetaItem(nil), r.Meta...)
	out.Strings = append([]yarax.StringItem(nil), r.Strings...)
	out.Order = append([]yarax.Section(nil), r.Order...)
	return out
}

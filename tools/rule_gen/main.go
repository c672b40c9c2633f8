// forge/tools/rule_gen/main.go

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"threathawk/forge/pkg/sysmon"
	"threathawk/forge/pkg/yarax"
)

type options struct {
	Kind   string
	Count  int
	Blocks int
	Output string
}

var suspiciousImages = []string{
	`C:\Windows\System32\cmd.exe`,
	`C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`,
	`C:\Windows\System32\rundll32.exe`,
	`C:\Windows\System32\regsvr32.exe`,
	`C:\Windows\System32\mshta.exe`,
	`C:\Windows\System32\certutil.exe`,
}

func peKeyword(name string) (yarax.Keyword, bool) {
	for _, kw := range yarax.Modules[0].Functions {
		if kw.Name == name {
			return kw, true
		}
	}
	return yarax.Keyword{}, false
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("rule_gen", flag.ContinueOnError)
	opts := options{}
	fs.StringVar(&opts.Kind, "kind", "sysmon", "Model kind to generate (sysmon or yarax)")
	fs.IntVar(&opts.Count, "count", 100, "Number of model files to generate")
	fs.IntVar(&opts.Blocks, "blocks", 5, "Rule blocks per Sysmon group")
	fs.StringVar(&opts.Output, "output", "generated_rules", "Output directory")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Kind != "sysmon" && opts.Kind != "yarax" {
		return opts, fmt.Errorf("unknown kind %q", opts.Kind)
	}
	if opts.Count < 1 || opts.Blocks < 1 {
		return opts, fmt.Errorf("count and blocks must be positive")
	}
	return opts, nil
}

// conditionValue returns a plausible filter value for field.
func conditionValue(field string) string {
	switch {
	case strings.HasSuffix(field, "Image") || field == "ImageLoaded":
		return gofakeit.RandomString(suspiciousImages)
	case strings.HasSuffix(field, "Ip"):
		return gofakeit.IPv4Address()
	case strings.HasSuffix(field, "Port"):
		return fmt.Sprint(gofakeit.IntRange(1, 65535))
	case field == "QueryName" || field == "DestinationHostname":
		return gofakeit.DomainName()
	case field == "User":
		return `NT AUTHORITY\` + strings.ToUpper(gofakeit.Username())
	default:
		return gofakeit.Word()
	}
}

func generateBlock(g *sysmon.RuleGroup) error {
	var eventType string
	var fields []string
	for len(fields) == 0 {
		eventType = sysmon.EventTypes[gofakeit.IntRange(0, len(sysmon.EventTypes)-1)].Name
		fields = sysmon.FieldsFor(eventType)
	}

	onMatch := sysmon.OnMatchInclude
	if gofakeit.Bool() {
		onMatch = sysmon.OnMatchExclude
	}
	relation := sysmon.RelationAnd
	if gofakeit.Bool() {
		relation = sysmon.RelationOr
	}

	b := g.AddBlock()
	if err := g.UpdateBlock(b.ID, eventType, onMatch, relation); err != nil {
		return err
	}

	for i, n := 0, gofakeit.IntRange(1, 3); i < n; i++ {
		c := b.Conditions[0]
		if i > 0 {
			var err error
			if c, err = g.AddCondition(b.ID); err != nil {
				return err
			}
		}
		c.Field = gofakeit.RandomString(fields)
		c.ConditionType = gofakeit.RandomString(sysmon.ConditionTypes)
		c.Value = conditionValue(c.Field)
		if err := g.UpdateCondition(b.ID, c); err != nil {
			return err
		}
	}
	return nil
}

func generateRuleGroup(index, blocks int) (sysmon.RuleGroup, error) {
	relation := sysmon.RelationOr
	if index%2 == 0 {
		relation = sysmon.RelationAnd
	}
	g := sysmon.RuleGroup{Name: fmt.Sprintf("GeneratedGroup%d", index), TopRelation: relation}
	for i := 0; i < blocks; i++ {
		if err := generateBlock(&g); err != nil {
			return g, err
		}
	}
	return g, nil
}

func generateRule(index int) (yarax.Rule, error) {
	r := yarax.Rule{
		Header: yarax.RuleHeader{Identifier: fmt.Sprintf("generated_rule_%d", index)},
		Order:  yarax.DefaultSectionOrder(),
	}
	for i, n := 0, gofakeit.IntRange(0, 3); i < n; i++ {
		// a repeated word is rejected and skipped
		_ = r.AddTag(strings.ToLower(gofakeit.Word()))
	}

	author := r.AddMeta()
	if err := r.SetMetaKey(author.ID, "author"); err != nil {
		return r, err
	}
	if err := r.SetMetaValue(author.ID, gofakeit.Name()); err != nil {
		return r, err
	}
	score := r.AddMeta()
	if err := r.SetMetaKey(score.ID, "score"); err != nil {
		return r, err
	}
	if err := r.SetMetaType(score.ID, yarax.MetaInteger); err != nil {
		return r, err
	}
	if err := r.SetMetaValue(score.ID, gofakeit.IntRange(1, 100)); err != nil {
		return r, err
	}

	ids := make([]string, 0, 3)
	for i, n := 0, gofakeit.IntRange(1, 3); i < n; i++ {
		s := r.AddString()
		if gofakeit.Bool() {
			s.Kind = yarax.KindHex
			s.Value = fmt.Sprintf("{ %02X %02X ?? %02X }", gofakeit.Uint8(), gofakeit.Uint8(), gofakeit.Uint8())
		} else {
			s.Value = gofakeit.AppName() + ".exe"
			s.Modifiers.Nocase = gofakeit.Bool()
			s.Modifiers.Wide = gofakeit.Bool()
		}
		if err := r.UpdateString(s); err != nil {
			return r, err
		}
		ids = append(ids, s.Identifier)
	}

	r.Condition = strings.Join(ids, " or ")
	if kw, ok := peKeyword("is_dll"); ok && gofakeit.Bool() {
		r.Condition, _ = yarax.InsertAt("("+r.Condition+")", 0, kw.InsertValue+" and ")
	}
	return r, nil
}

func generateModel(kind string, index, blocks int) (interface{}, error) {
	if kind == "yarax" {
		return generateRule(index)
	}
	return generateRuleGroup(index, blocks)
}

// writeModels writes one YAML file per model into opts.Output and returns the
// paths in order.
func writeModels(opts options, progress io.Writer) ([]string, error) {
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(opts.Count,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("generating "+opts.Kind+" models"),
	)

	paths := make([]string, 0, opts.Count)
	for i := 1; i <= opts.Count; i++ {
		model, err := generateModel(opts.Kind, i, opts.Blocks)
		if err != nil {
			return paths, err
		}
		data, err := yaml.Marshal(model)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(opts.Output, fmt.Sprintf("%s-%d.yaml", opts.Kind, i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		bar.Add(1)
	}
	bar.Finish()
	return paths, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	paths, err := writeModels(opts, os.Stderr)
	if err != nil {
		fmt.Printf("Error generating models: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nGenerated %d %s models in %s\n", len(paths), opts.Kind, opts.Output)
}

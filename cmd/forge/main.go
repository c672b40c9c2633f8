// forge/cmd/forge/main.go

// Command forge renders, imports, merges and lints Sysmon and YARA-X rules
// from the command line.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"threathawk/forge/pkg/logging"
	"threathawk/forge/pkg/scripting"
	"threathawk/forge/pkg/session"
	"threathawk/forge/pkg/sysmon"
	"threathawk/forge/pkg/validator"
	"threathawk/forge/pkg/yarax"
)

var version = "dev"

func main() {
	if err := logging.ConfigureLogger("warn", "console"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "render":
		err = runRender(args[1:], stdout)
	case "import":
		err = runImport(args[1:], stdout, stderr)
	case "merge":
		err = runMerge(args[1:], stdout)
	case "lint":
		err = runLint(args[1:], stdout)
	case "scan-cmd":
		err = runScanCmd(args[1:], stdout)
	case "-version", "--version", "-v":
		fmt.Fprintf(stdout, "forge %s\n", version)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errReported means the command already wrote its own failure output.
var errReported = errors.New("reported")

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: forge <command> [flags] [args]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  render sysmon|yarax <model>   Render a rule model file to text\n")
	fmt.Fprintf(w, "  import <fragment>             Recover a Sysmon rule block from a fragment\n")
	fmt.Fprintf(w, "  merge <document> <fragment>   Splice a fragment into a Sysmon document\n")
	fmt.Fprintf(w, "  lint sysmon|yarax <model>     Check a rule model for problems\n")
	fmt.Fprintf(w, "  scan-cmd <rules> <target>     Print the yr scan command line\n\n")
	fmt.Fprintf(w, "Flags:\n")
	fmt.Fprintf(w, "  -version  Show version and exit\n")
}

func kindArgs(name string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if fs.NArg() != 2 {
		return "", "", fmt.Errorf("usage: forge %s sysmon|yarax <model>", name)
	}
	kind, path := fs.Arg(0), fs.Arg(1)
	if kind != session.KindSysmon && kind != session.KindYaraX {
		return "", "", fmt.Errorf("unknown rule kind %q", kind)
	}
	return kind, path, nil
}

func runRender(args []string, stdout io.Writer) error {
	kind, path, err := kindArgs("render", args)
	if err != nil {
		return err
	}

	if kind == session.KindSysmon {
		g, err := sysmon.LoadRuleGroup(path)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, sysmon.Generate(g))
		return nil
	}

	r, err := yarax.LoadRule(path)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, yarax.Generate(r))
	return nil
}

func runImport(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	script := fs.String("transform", "", "JavaScript transform applied before parsing")
	timeout := fs.Duration("timeout", 200*time.Millisecond, "Transform time limit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: forge import [--transform script.js] <fragment>")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	text := string(data)

	if *script != "" {
		vm, err := scripting.LoadTransformVM(*script)
		if err != nil {
			return err
		}
		if text, err = vm.TransformText(text, *timeout); err != nil {
			return err
		}
	}

	block, ok := sysmon.ParseFragment(text)
	if !ok {
		fmt.Fprintln(stderr, session.ImportFailedNotice)
		fmt.Fprint(stderr, sysmon.WrapFragment(sysmon.RuleGroup{Name: sysmon.DefaultGroupName, TopRelation: sysmon.RelationOr}, text))
		return errReported
	}

	out, err := yaml.Marshal(block)
	if err != nil {
		return err
	}
	stdout.Write(out)
	return nil
}

func runMerge(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	output := fs.String("o", "", "Write the merged document here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: forge merge [-o file] <document> <fragment>")
	}

	doc, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	frag, err := os.ReadFile(fs.Arg(1))
	if err != nil {
		return err
	}

	merged, err := sysmon.MergeFragment(string(doc), string(frag))
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(merged), 0o644)
	}
	fmt.Fprint(stdout, merged)
	return nil
}

func runLint(args []string, stdout io.Writer) error {
	kind, path, err := kindArgs("lint", args)
	if err != nil {
		return err
	}

	linter := validator.New()
	var issues []validator.Issue
	if kind == session.KindSysmon {
		g, err := sysmon.LoadRuleGroup(path)
		if err != nil {
			return err
		}
		issues = linter.LintRuleGroup(g)
	} else {
		r, err := yarax.LoadRule(path)
		if err != nil {
			return err
		}
		issues = linter.LintRule(r)
	}

	for _, issue := range issues {
		fmt.Fprintln(stdout, issue.String())
	}
	fmt.Fprintf(stdout, "%s: %d issue(s)\n", path, len(issues))

	if validator.HasErrors(issues) {
		return errReported
	}
	return nil
}

func runScanCmd(args []string, stdout io.Writer) error {
	opts := yarax.DefaultScanOptions()

	fs := flag.NewFlagSet("scan-cmd", flag.ContinueOnError)
	fs.IntVar(&opts.Threads, "threads", opts.Threads, "Scan threads, 0 to let yr decide")
	noStrings := fs.Bool("no-strings", false, "Do not print matching strings")
	noNamespace := fs.Bool("no-namespace", false, "Do not print rule namespaces")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		opts.RulePath = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		opts.ScanPath = fs.Arg(1)
	}
	opts.PrintStrings = !*noStrings
	opts.PrintNamespace = !*noNamespace

	fmt.Fprintln(stdout, yarax.ScanCommand(opts))
	return nil
}

// forge/tools/redis_setup/main.go

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"threathawk/forge/pkg/store"
	"threathawk/forge/pkg/sysmon"
	"threathawk/forge/pkg/yarax"
)

func main() {
	addr := flag.String("redis", "localhost:6379", "Redis address")
	document := flag.String("document", "default", "Name of the seeded Sysmon document")
	channel := flag.String("channel", "forge_fragments", "Channel fragments are published on")
	flag.Parse()

	st, err := store.NewRedisStore(*addr, "", 0)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := initializeStore(st, *document); err != nil {
		fmt.Printf("Error seeding documents: %v\n", err)
		os.Exit(1)
	}
	startCLI(st, *channel, os.Stdin, os.Stdout)
}

// initializeStore seeds the default Sysmon document under name and the default
// YARA-X rule.
func initializeStore(st store.Store, name string) error {
	files := []store.RuleFile{
		{Name: name, Kind: store.KindSysmon, Content: sysmon.Generate(sysmon.DefaultRuleGroup())},
		{Name: "my_rule", Kind: store.KindYaraX, Content: yarax.Generate(yarax.DefaultRule())},
	}
	for _, f := range files {
		if err := st.SaveRuleFile(f); err != nil {
			return fmt.Errorf("saving %s: %w", f.Key(), err)
		}
		fmt.Printf("Saved %s\n", f.Key())
	}
	return nil
}

func startCLI(st store.Store, channel string, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter command (publish <file>, show <kind> <name>, list <kind> or exit): ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "exit" {
			return
		}
		if err := processCommand(st, channel, input, out); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func processCommand(st store.Store, channel, input string, out io.Writer) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	switch {
	case parts[0] == "publish" && len(parts) == 2:
		data, err := os.ReadFile(parts[1])
		if err != nil {
			return err
		}
		if err := st.PublishFragment(channel, string(data)); err != nil {
			return fmt.Errorf("error publishing fragment: %w", err)
		}
		fmt.Fprintf(out, "Published %d bytes to %s\n", len(data), channel)
	case parts[0] == "show" && len(parts) == 3:
		f, err := st.GetRuleFile(store.Kind(parts[1]), parts[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, f.Content)
	case parts[0] == "list" && len(parts) == 2:
		names, err := st.ListRuleFiles(store.Kind(parts[1]))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.Join(names, "\n"))
	default:
		return fmt.Errorf("invalid command %q", input)
	}
	return nil
}

// forge/tools/import_stressor/main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"threathawk/forge/pkg/store"
	"threathawk/forge/pkg/sysmon"
)

var stressEvents = []string{"ProcessCreate", "NetworkConnect", "FileCreate", "DnsQuery", "ImageLoad"}

// generateFragment drafts one rule fragment the way an external service would:
// generated text, sometimes wrapped in a code fence. Broken fragments carry no
// usable condition and must be rejected by the importer.
func generateFragment(broken bool) string {
	g := sysmon.RuleGroup{}
	b := g.AddBlock()
	eventType := gofakeit.RandomString(stressEvents)
	fields := sysmon.FieldsFor(eventType)

	c := b.Conditions[0]
	c.Field = gofakeit.RandomString(fields)
	c.ConditionType = gofakeit.RandomString(sysmon.ConditionTypes)
	c.Value = gofakeit.Word() + "." + gofakeit.FileExtension()
	if broken {
		c.Value = ""
	}
	g.UpdateBlock(b.ID, eventType, "", "")
	g.UpdateCondition(b.ID, c)

	text := sysmon.GenerateFragment(g.Rules[0])
	if gofakeit.Bool() {
		text = "```xml\n" + strings.TrimRight(text, "\n") + "\n```"
	}
	return text
}

// stress publishes count fragments at rate per second, or until ctx ends when
// count is zero. It returns how many were published.
func stress(ctx context.Context, st store.Store, channel string, rate, count, brokenPercent int) (int, error) {
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	sent := 0
	for count == 0 || sent < count {
		select {
		case <-ctx.Done():
			return sent, nil
		case <-ticker.C:
		}

		broken := gofakeit.IntRange(1, 100) <= brokenPercent
		if err := st.PublishFragment(channel, generateFragment(broken)); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address")
	channel := flag.String("channel", "forge_fragments", "Fragment channel")
	rate := flag.Int("rate", 10, "Fragments published per second")
	count := flag.Int("count", 0, "Stop after this many fragments, 0 runs until interrupted")
	brokenPercent := flag.Int("broken", 10, "Percentage of fragments that cannot be imported")
	flag.Parse()

	if *rate < 1 {
		fmt.Println("rate must be at least 1")
		os.Exit(1)
	}

	st, err := store.NewRedisStore(*redisAddr, "", 0)
	if err != nil {
		fmt.Printf("Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Publishing fragments to %s at %d per second\n", *channel, *rate)
	sent, err := stress(ctx, st, *channel, *rate, *count, *brokenPercent)
	if err != nil {
		fmt.Printf("Error publishing fragment: %v\n", err)
	}
	fmt.Printf("Published %d fragments\n", sent)
}

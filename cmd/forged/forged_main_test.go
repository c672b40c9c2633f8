// forge/cmd/forged/forged_main_test.go

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threathawk/forge/pkg/logging"
	"threathawk/forge/pkg/store"
	"threathawk/forge/pkg/sysmon"
)

const draftedFragment = `<Rule groupRelation="and" name="TechniqueName, Txxxx">
  <NetworkConnect onmatch="include">
    <DestinationPort condition="is">4444</DestinationPort>
    <Image condition="end with">nc.exe</Image>
  </NetworkConnect>
</Rule>`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forge_config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(addr string) *Config {
	return &Config{
		LogLevel:         "info",
		LogOutput:        "console",
		RedisAddress:     addr,
		RedisChannels:    []string{"forge_fragments"},
		Document:         "default",
		RuleGroup:        "CustomRuleGroup",
		GroupRelation:    "OR",
		TransformTimeout: 200 * time.Millisecond,
	}
}

func testDeps(t *testing.T, config *Config) *ForgeDependencies {
	t.Helper()
	deps, err := setupDependencies(config, &RealStoreFactory{})
	require.NoError(t, err)
	return deps
}

func TestParseConfig(t *testing.T) {
	path := writeConfig(t, `{
		"logging": {"level": "debug", "output": "console"},
		"redis": {"address": "localhost:6380", "password": "secret", "database": 2, "channels": ["drafts", "imports"]},
		"forge": {"document": "edr", "rule_group": "EDR", "group_relation": "AND", "transform_timeout_ms": 50},
		"api": {"port": 9000}
	}`)

	config, err := parseConfig([]string{"forged", "--config", path})
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "localhost:6380", config.RedisAddress)
	assert.Equal(t, "secret", config.RedisPassword)
	assert.Equal(t, 2, config.RedisDB)
	assert.Equal(t, []string{"drafts", "imports"}, config.RedisChannels)
	assert.Equal(t, "edr", config.Document)
	assert.Equal(t, "EDR", config.RuleGroup)
	assert.Equal(t, "AND", config.GroupRelation)
	assert.Equal(t, 50*time.Millisecond, config.TransformTimeout)
	assert.Equal(t, 9000, config.APIPort)
}

func TestParseConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	config, err := parseConfig([]string{"forged", "--config", path})
	require.NoError(t, err)

	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "console", config.LogOutput)
	assert.Equal(t, "localhost:6379", config.RedisAddress)
	assert.Equal(t, []string{"forge_fragments"}, config.RedisChannels)
	assert.Equal(t, "default", config.Document)
	assert.Equal(t, sysmon.DefaultGroupName, config.RuleGroup)
	assert.Equal(t, "OR", config.GroupRelation)
	assert.Equal(t, 200*time.Millisecond, config.TransformTimeout)
	assert.Equal(t, 8088, config.APIPort)
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad relation", `{"forge": {"group_relation": "XOR"}}`},
		{"bad output", `{"logging": {"output": "syslog"}}`},
		{"bad address", `{"redis": {"address": "nowhere"}}`},
		{"no channels", `{"redis": {"channels": []}}`},
		{"bad port", `{"api": {"port": 70000}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := parseConfig([]string{"forged", "--config", path})
			require.Error(t, err)
			assert.True(t, logging.IsType(err, logging.ErrorTypeConfig))
		})
	}
}

func TestParseConfigMissingExplicitFile(t *testing.T) {
	_, err := parseConfig([]string{"forged", "--config", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}

func TestSetupDependencies(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	deps := testDeps(t, testConfig(mr.Addr()))

	assert.NotNil(t, deps.Store)
	assert.NotNil(t, deps.Hub)
	assert.Nil(t, deps.Transformer)
	assert.Empty(t, deps.Sysmon.Group().Rules)
	assert.Equal(t, "CustomRuleGroup", deps.Sysmon.Group().Name)
}

func TestSetupDependenciesWithTransform(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	script := filepath.Join(t.TempDir(), "transform.js")
	require.NoError(t, os.WriteFile(script, []byte("return stripCodeFence(fragment);"), 0o644))

	config := testConfig(mr.Addr())
	config.TransformScript = script
	deps := testDeps(t, config)
	require.NotNil(t, deps.Transformer)

	out, err := deps.Transformer.TransformText("```xml\n<Rule/>\n```", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "<Rule/>", out)
}

func TestSetupDependenciesStoreUnavailable(t *testing.T) {
	_, err := setupDependencies(testConfig("127.0.0.1:1"), &RealStoreFactory{})
	require.Error(t, err)
	assert.True(t, logging.IsType(err, logging.ErrorTypeStore))
}

func TestProcessMessageCreatesDocument(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := testConfig(mr.Addr())
	deps := testDeps(t, config)

	err = processMessage(deps, config, &redis.Message{Channel: "forge_fragments", Payload: draftedFragment})
	require.NoError(t, err)

	doc, err := deps.Store.GetRuleFile(store.KindSysmon, "default")
	require.NoError(t, err)
	assert.Equal(t, deps.Sysmon.Text(), doc.Content)
	assert.Contains(t, doc.Content, `<DestinationPort condition="is">4444</DestinationPort>`)
}

func TestProcessMessageMergesIntoExistingDocument(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := testConfig(mr.Addr())
	deps := testDeps(t, config)

	base := sysmon.Generate(sysmon.DefaultRuleGroup())
	base = strings.Replace(base, "<EventFiltering>", "<EventFiltering>\n    <!-- hand edited -->", 1)
	require.NoError(t, deps.Store.SaveRuleFile(store.RuleFile{Name: "default", Kind: store.KindSysmon, Content: base}))

	err = processMessage(deps, config, &redis.Message{Channel: "forge_fragments", Payload: draftedFragment})
	require.NoError(t, err)

	doc, err := deps.Store.GetRuleFile(store.KindSysmon, "default")
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "<!-- hand edited -->")
	assert.Contains(t, doc.Content, "<ProcessCreate onmatch=\"include\">")
	assert.Contains(t, doc.Content, "<NetworkConnect onmatch=\"include\">")
	assert.Less(t, strings.Index(doc.Content, "ProcessCreate"), strings.Index(doc.Content, "NetworkConnect"))
}

func TestProcessMessageUnparseableFragment(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := testConfig(mr.Addr())
	deps := testDeps(t, config)

	err = processMessage(deps, config, &redis.Message{Channel: "forge_fragments", Payload: "not a rule"})
	require.Error(t, err)
	assert.True(t, logging.IsType(err, logging.ErrorTypeParse))

	_, err = deps.Store.GetRuleFile(store.KindSysmon, "default")
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
}

func TestProcessMessageNoInsertionPoint(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := testConfig(mr.Addr())
	deps := testDeps(t, config)
	require.NoError(t, deps.Store.SaveRuleFile(store.RuleFile{Name: "default", Kind: store.KindSysmon, Content: "<Sysmon/>"}))

	err = processMessage(deps, config, &redis.Message{Channel: "forge_fragments", Payload: draftedFragment})
	require.Error(t, err)
	assert.True(t, logging.IsType(err, logging.ErrorTypeMerge))
	assert.ErrorIs(t, err, sysmon.ErrNoInsertionPoint)

	doc, err := deps.Store.GetRuleFile(store.KindSysmon, "default")
	require.NoError(t, err)
	assert.Equal(t, "<Sysmon/>", doc.Content)
}

func TestRunMainLoop(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := testConfig(mr.Addr())
	deps := testDeps(t, config)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runMainLoop(ctx, deps, config) }()

	require.Eventually(t, func() bool {
		return mr.Publish("forge_fragments", draftedFragment) > 0
	}, 2*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := deps.Store.GetRuleFile(store.KindSysmon, "default")
		return err == nil
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestRun(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	path := writeConfig(t, fmt.Sprintf(`{
		"redis": {"address": "%s"},
		"api": {"port": 0}
	}`, mr.Addr()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = run(ctx, []string{"forged", "--config", path}, &RealStoreFactory{})
	assert.NoError(t, err)
}

// forge/cmd/forged/main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"threathawk/forge/pkg/api"
	"threathawk/forge/pkg/logging"
	"threathawk/forge/pkg/scripting"
	"threathawk/forge/pkg/session"
	"threathawk/forge/pkg/store"
	"threathawk/forge/pkg/sysmon"
	"threathawk/forge/pkg/yarax"
)

// Config represents the daemon configuration
type Config struct {
	LogLevel         string `validate:"required,oneof=trace debug info warn error fatal panic disabled"`
	LogOutput        string `validate:"oneof=console file"`
	RedisAddress     string `validate:"required,hostname_port"`
	RedisPassword    string
	RedisDB          int      `validate:"min=0"`
	RedisChannels    []string `validate:"min=1,dive,required"`
	Document         string   `validate:"required"`
	RuleGroup        string   `validate:"required"`
	GroupRelation    string   `validate:"oneof=AND OR"`
	TransformScript  string
	TransformTimeout time.Duration
	APIPort          int `validate:"min=0,max=65535"`
}

// ForgeDependencies holds what the subscription loop and the API share.
type ForgeDependencies struct {
	Store       store.Store
	Sysmon      *session.SysmonSession
	Yara        *session.YaraSession
	Hub         *session.PreviewHub
	Transformer api.Transformer
}

// StoreFactory is an interface for creating a store
type StoreFactory interface {
	NewStore(addr, password string, db int) (store.Store, error)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, os.Args, &RealStoreFactory{}); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

func run(ctx context.Context, args []string, storeFactory StoreFactory) error {
	config, err := parseConfig(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := logging.ConfigureLogger(config.LogLevel, config.LogOutput); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	deps, err := setupDependencies(config, storeFactory)
	if err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if config.APIPort > 0 {
		srv := startAPI(deps, config)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
	}

	return runMainLoop(ctx, deps, config)
}

func parseConfig(args []string) (*Config, error) {
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	configFile := flags.String("config", "", "Path to configuration file")
	if err := flags.Parse(args[1:]); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "console")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.channels", []string{"forge_fragments"})
	v.SetDefault("forge.document", "default")
	v.SetDefault("forge.rule_group", sysmon.DefaultGroupName)
	v.SetDefault("forge.group_relation", string(sysmon.RelationOr))
	v.SetDefault("forge.transform_script", "")
	v.SetDefault("forge.transform_timeout_ms", 200)
	v.SetDefault("api.port", 8088)

	if *configFile == "" {
		v.SetConfigName("forge_config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.forge")
		v.AddConfigPath("/etc/forge")
	} else {
		v.SetConfigFile(*configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || *configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("No configuration file found, using defaults")
	}

	config := &Config{
		LogLevel:         v.GetString("logging.level"),
		LogOutput:        v.GetString("logging.output"),
		RedisAddress:     v.GetString("redis.address"),
		RedisPassword:    v.GetString("redis.password"),
		RedisDB:          v.GetInt("redis.database"),
		RedisChannels:    v.GetStringSlice("redis.channels"),
		Document:         v.GetString("forge.document"),
		RuleGroup:        v.GetString("forge.rule_group"),
		GroupRelation:    v.GetString("forge.group_relation"),
		TransformScript:  v.GetString("forge.transform_script"),
		TransformTimeout: time.Duration(v.GetInt("forge.transform_timeout_ms")) * time.Millisecond,
		APIPort:          v.GetInt("api.port"),
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig, "invalid configuration", err, nil)
	}
	return config, nil
}

func setupDependencies(config *Config, storeFactory StoreFactory) (*ForgeDependencies, error) {
	st, err := storeFactory.NewStore(config.RedisAddress, config.RedisPassword, config.RedisDB)
	if err != nil {
		return nil, err
	}

	hub := session.NewPreviewHub()
	group := sysmon.RuleGroup{
		Name:        config.RuleGroup,
		TopRelation: sysmon.Relation(config.GroupRelation),
	}

	deps := &ForgeDependencies{
		Store:  st,
		Sysmon: session.NewSysmonSession(group, hub),
		Yara:   session.NewYaraSession(yarax.DefaultRule(), hub),
		Hub:    hub,
	}

	if config.TransformScript != "" {
		vm, err := scripting.LoadTransformVM(config.TransformScript)
		if err != nil {
			return nil, err
		}
		deps.Transformer = vm
	}

	return deps, nil
}

func startAPI(deps *ForgeDependencies, config *Config) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(api.Options{
		Sysmon:           deps.Sysmon,
		Yara:             deps.Yara,
		Hub:              deps.Hub,
		Store:            deps.Store,
		Transformer:      deps.Transformer,
		TransformTimeout: config.TransformTimeout,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.APIPort),
		Handler: server.Handler(),
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("API server stopped")
		}
	}()
	return srv
}

func runMainLoop(ctx context.Context, deps *ForgeDependencies, config *Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pubsub := deps.Store.Subscribe(config.RedisChannels...)
	if pubsub == nil {
		return logging.NewError(logging.ErrorTypeStore, "failed to subscribe", nil,
			map[string]interface{}{"channels": config.RedisChannels})
	}
	defer pubsub.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	log.Info().Msg("Forge daemon started")

	messages := pubsub.Channel()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := processMessage(deps, config, msg); err != nil {
				logging.LogError(logging.Logger, err)
			}
		case <-sigChan:
			log.Info().Msg("Shutting down forge daemon")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// processMessage imports one drafted fragment and merges the recovered block
// into the stored document. A fragment that cannot be imported leaves the
// document alone.
func processMessage(deps *ForgeDependencies, config *Config, msg *redis.Message) error {
	logging.Logger.Info().Str("channel", msg.Channel).Int("length", len(msg.Payload)).Msg("Received fragment")

	text := msg.Payload
	if deps.Transformer != nil {
		out, err := deps.Transformer.TransformText(text, config.TransformTimeout)
		if err != nil {
			return err
		}
		text = out
	}

	block, ok := deps.Sysmon.Import(text)
	if !ok {
		return logging.NewError(logging.ErrorTypeParse, "fragment could not be imported", nil,
			map[string]interface{}{"channel": msg.Channel})
	}

	content, err := loadDocument(deps.Store, config)
	if err != nil {
		return err
	}

	merged, err := sysmon.MergeFragment(content, sysmon.GenerateFragment(block))
	if err != nil {
		return err
	}

	return deps.Store.SaveAndPublishRuleFile(store.RuleFile{
		Name:    config.Document,
		Kind:    store.KindSysmon,
		Content: merged,
	})
}

// loadDocument returns the stored merge target, or an empty rule group document
// when none exists yet.
func loadDocument(st store.Store, config *Config) (string, error) {
	f, err := st.GetRuleFile(store.KindSysmon, config.Document)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return sysmon.Generate(sysmon.RuleGroup{
			Name:        config.RuleGroup,
			TopRelation: sysmon.Relation(config.GroupRelation),
		}), nil
	}
	if err != nil {
		return "", err
	}
	return f.Content, nil
}

// RealStoreFactory implements StoreFactory
type RealStoreFactory struct{}

func (f *RealStoreFactory) NewStore(addr, password string, db int) (store.Store, error) {
	return store.NewRedisStore(addr, password, db)
}

// Package cli implements the tripmate CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tripmate-ai/tripmate/trip/classify"
	"github.com/tripmate-ai/tripmate/trip/config"
	openaigen "github.com/tripmate-ai/tripmate/trip/generation/openai"
	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
	"github.com/tripmate-ai/tripmate/trip/handlers"
	"github.com/tripmate-ai/tripmate/trip/memory"
	"github.com/tripmate-ai/tripmate/trip/pipeline"
	"github.com/tripmate-ai/tripmate/trip/router"
	"github.com/tripmate-ai/tripmate/trip/tools"
)

var (
	configPath string
	storePath  string
	sessionID  string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "tripmate",
	Short: "Travel assistant with task routing and conversational memory",
	Long:  "Routes free-text travel questions to specialist handlers and keeps per-session conversational memory in a single JSON file.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: ./config.yaml)")
	RootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Memory store path (overrides config)")
	RootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "default", "Session id")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// app bundles everything a command needs.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    *memory.Store
	manager  *memory.ConversationManager
	registry *handlers.Registry
	pipeline *pipeline.Pipeline
}

// newApp wires the full application: config, logging, store, manager,
// registry, classifier, router, data sources, pipeline. The registry
// is caller-owned and passed by reference into the router.
func newApp() (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	store := memory.NewStore(cfg.Store.Path, logger)
	manager := memory.NewConversationManager(store, cfg.Memory.MaxContextTurns, cfg.Memory.MaxMemories, logger)

	generator := openaigen.NewClient(cfg.LLM, logger)

	registry := handlers.NewRegistry(logger)
	if err := handlers.RegisterDefaults(registry, generator, logger); err != nil {
		return nil, fmt.Errorf("register handlers: %w", err)
	}

	classifier, err := newClassifier(cfg.Router.Protocol, generator, registry.List(), logger)
	if err != nil {
		return nil, err
	}
	taskRouter := router.NewTaskRouter(registry, classifier, cfg.Router.Threshold, logger)

	summary := handlers.NewSummaryHandler(generator, logger)
	weather := tools.NewWeatherClient(cfg.Weather, logger)
	search := tools.NewSearchClient(cfg.Search, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		manager:  manager,
		registry: registry,
		pipeline: pipeline.New(manager, taskRouter, summary, weather, search, cfg.Memory.Enabled, logger),
	}, nil
}

func newClassifier(protocol string, generator genports.Generator, categories []string, logger zerolog.Logger) (classify.Classifier, error) {
	switch protocol {
	case "line":
		return classify.NewLineClassifier(generator, categories, logger), nil
	case "json", "":
		return classify.NewJSONClassifier(generator, categories, logger)
	default:
		return nil, fmt.Errorf("unknown classification protocol: %s", protocol)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

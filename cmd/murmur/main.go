package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/murmur/internal/config"
	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/llm"
	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/mcp"
	"github.com/hpungsan/murmur/internal/ops"
	"github.com/hpungsan/murmur/internal/rag"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"import": true, "list": true, "fetch": true, "delete": true,
	"index": true, "ask": true, "history": true, "summarize": true,
	"rename-speaker": true, "reassign-segment": true,
	"record": true, "serve": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _ __ ___  _   _ _ __ _ __ ___  _   _ _ __
  | '_ ` + "`" + ` _ \| | | | '__| '_ ` + "`" + ` _ \| | | | '__|
  | | | | | | |_| | |  | | | | | | |_| | |
  |_| |_| |_|\__,_|_|  |_| |_| |_|\__,_|_|

  Meeting recorder and transcript assistant

  Usage: murmur <command> [options]
         murmur --help

  MCP server mode requires piped input.`)
}

// env is what every command runs against. Model providers are built on
// first use, so commands that never reach the model need no API key.
type env struct {
	baseDir string
	db      *sql.DB
	cfg     *config.Config
	log     *logging.Logger

	providers func() (rag.Embedder, rag.ChatCompleter, error)
	pipeline  *ops.Pipeline
	closers   []func() error
}

// Pipeline returns the RAG pipeline, connecting the providers on first call.
func (e *env) Pipeline() (*ops.Pipeline, error) {
	if e.pipeline != nil {
		return e.pipeline, nil
	}
	embedder, chat, err := e.providers()
	if err != nil {
		return nil, err
	}
	e.pipeline = ops.NewPipeline(e.db, e.cfg, embedder, chat, e.log)
	return e.pipeline, nil
}

// storagePipeline returns a pipeline for operations that only touch stored
// data and vectors. Its embedder and chat are unset.
func (e *env) storagePipeline() *ops.Pipeline {
	if e.pipeline != nil {
		return e.pipeline
	}
	return ops.NewPipeline(e.db, e.cfg, nil, nil, e.log)
}

// Close releases provider connections.
func (e *env) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			e.log.Warnf("close: %v", err)
		}
	}
	e.closers = nil
}

// openAIProviders builds the OpenAI client, wrapping embeddings in the Redis
// cache when one is configured. An unreachable cache is logged and skipped.
func openAIProviders(e *env) func() (rag.Embedder, rag.ChatCompleter, error) {
	return func() (rag.Embedder, rag.ChatCompleter, error) {
		client, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:              e.cfg.OpenAIAPIKey,
			BaseURL:             e.cfg.OpenAIBaseURL,
			ChatModel:           e.cfg.ChatModel,
			EmbeddingModel:      e.cfg.EmbeddingModel,
			EmbeddingDimensions: e.cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, nil, err
		}
		if e.cfg.RedisAddr == "" {
			return client, client, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cache, err := llm.ConnectRedis(ctx, e.cfg.RedisAddr)
		if err != nil {
			e.log.Warnf("embedding cache disabled: %v", err)
			return client, client, nil
		}
		e.closers = append(e.closers, cache.Close)

		ttl := time.Duration(e.cfg.EmbeddingCacheTTLSeconds) * time.Second
		namespace := fmt.Sprintf("%s:%d", e.cfg.EmbeddingModel, e.cfg.EmbeddingDimensions)
		return llm.NewCachedEmbedder(client, cache, namespace, ttl, e.log), client, nil
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fail("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".murmur")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fail("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("invalid config: %v", err)
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	log := logging.New(os.Stderr, level)

	database, err := db.Init(baseDir)
	if err != nil {
		fail("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	e := &env{baseDir: baseDir, db: database, cfg: cfg, log: log}
	e.providers = openAIProviders(e)
	defer e.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(e)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			e.Close()
			database.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'murmur --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	p, err := e.Pipeline()
	if err != nil {
		fail("%v", err)
	}
	if err := mcp.Run(p, cfg, Version); err != nil {
		fail("%v", err)
	}
}

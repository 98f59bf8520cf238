/*
Package main implements the semkit keyword-research server and CLI.

Semkit ingests third-party query-frequency exports, matches keyword lists
against them with tiered fuzzy fallback, expands compact query formulas,
maintains filtered per-segment snapshots, and proxies a quota-limited
external statistics API through a rate-limited cached client.

# Usage

Start the HTTP API server with default settings:

	semkit

Use a custom frequency data directory and enable debug logging:

	semkit -data /path/to/exports -d

Run in one-shot CLI mode to match a keyword file:

	semkit -c -data /path/to/exports -keywords keywords.txt

The data directory may mix JSON record lists, tab-separated, and
space-separated frequency files; the format is detected per file and
malformed files are skipped.

# Configuration

Runtime configuration is a TOML file (semkit.toml by default):

	[server]
	addr = ":8080"
	suggest_limit = 24

	[data]
	dir = "data/"

	[store]
	path = "semkit.db"

	[wordstat]
	base_url = "https://api.example.com"
	token = ""
	requests_per_second = 5
	requests_per_day = 1000
	cache_ttl_minutes = 30
	timeout_seconds = 30

Flags override the config file; the config file overrides builtin defaults.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/avasiliev/semkit/internal/cli"
	"github.com/avasiliev/semkit/internal/logger"
	"github.com/avasiliev/semkit/internal/server"
	"github.com/avasiliev/semkit/internal/store"
	"github.com/avasiliev/semkit/pkg/config"
	"github.com/avasiliev/semkit/pkg/freqindex"
	"github.com/avasiliev/semkit/pkg/wordstat"
)

const (
	Version = "0.3.0"
	AppName = "semkit"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires the components together; the logic lives in the packages.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to a TOML config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run one-shot CLI matching instead of the server")
	dataDir := flag.String("data", "", "Directory containing frequency source files")
	keywordFile := flag.String("keywords", "", "Keyword list file for CLI mode (one per line)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", AppName, Version)
		return
	}

	logger.SetDebug(*debugMode)
	mainLog := logger.New(AppName)

	cfg, cfgPath := config.LoadWithPriority(*configPath)
	if cfgPath != "" {
		mainLog.Debugf("Using config file %s", cfgPath)
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	index := buildIndex(mainLog, cfg.Data.Dir)

	if *cliMode {
		if *keywordFile == "" {
			mainLog.Fatal("CLI mode requires -keywords")
		}
		if index == nil {
			mainLog.Fatal("CLI mode requires a readable -data directory")
		}
		if err := cli.RunMatch(index, *keywordFile); err != nil {
			mainLog.Fatalf("Match run failed: %v", err)
		}
		return
	}

	docs, err := store.Open(cfg.Store.Path)
	if err != nil {
		mainLog.Fatalf("Opening document store: %v", err)
	}
	defer docs.Close()

	var client *wordstat.Client
	if cfg.Wordstat.BaseURL != "" {
		client = wordstat.NewClient(wordstat.Config{
			BaseURL:           cfg.Wordstat.BaseURL,
			Token:             cfg.Wordstat.Token,
			RequestsPerSecond: cfg.Wordstat.RequestsPerSecond,
			RequestsPerDay:    cfg.Wordstat.RequestsPerDay,
			CacheTTL:          cfg.Wordstat.CacheTTL(),
			Timeout:           cfg.Wordstat.Timeout(),
		})
	} else {
		mainLog.Warn("No wordstat base_url configured; /api/wordstat endpoints disabled")
	}

	srv := server.New(index, docs, client, cfg.Server.SuggestLimit)
	if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
		mainLog.Fatalf("Server failed: %v", err)
	}
}

// buildIndex ingests the frequency directory. A missing or empty directory
// is not fatal for server mode; matching endpoints report the index as
// unavailable until data exists.
func buildIndex(mainLog *log.Logger, dir string) *freqindex.Index {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		mainLog.Warnf("Frequency data directory %s not readable: %v", dir, err)
		return nil
	}

	b := freqindex.NewBuilder()
	if err := b.AddDir(dir); err != nil {
		mainLog.Warnf("Ingesting %s: %v", dir, err)
		return nil
	}
	if b.Len() == 0 {
		mainLog.Warnf("No frequency records found in %s", dir)
		return nil
	}
	index := b.Build()
	mainLog.Infof("Frequency index ready: %d queries from %s", index.Len(), dir)
	return index
}

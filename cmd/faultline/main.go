// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/wingedpig/faultline/internal/app"
	"github.com/wingedpig/faultline/internal/config"
)

var (
	version = "0.9"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Parse flags
	var (
		configPath  string
		host        string
		port        int
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.BoolVar(&debug, "debug", false, "Enable debug mode")
	flag.Parse()

	if showVersion {
		fmt.Printf("faultline %s\n", version)
		os.Exit(0)
	}

	// Find config file if not specified; running without one is fine,
	// defaults cover everything.
	if configPath == "" {
		if found, err := config.NewLoader().FindConfig(); err == nil {
			configPath = found
		}
	}
	if configPath != "" {
		log.Printf("Using config: %s", configPath)
	}

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Host:       host,
		Port:       port,
		Debug:      debug,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-application.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}

// runInit handles the "faultline init" command
func runInit() error {
	// Parse init-specific flags
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	initFlags.Parse(os.Args[2:])

	if *showHelp {
		fmt.Println(`Usage: faultline init [options]

Create a new faultline.hjson configuration file in the current directory.

This command walks you through setting up a Faultline configuration with
interactive prompts. The generated file is fully commented to help you
understand and customize all available options.

Options:
  -h, -help    Show this help message

The command will ask about:
  - Project name (defaults to current directory name)
  - Server port (defaults to 7710)
  - Application version to stamp on crash reports
  - Alert webhook URL (optional)

Examples:
  faultline init            Create config with interactive prompts
  cd myproject && faultline init

After running init:
  1. Review and edit faultline.hjson as needed
  2. Run: ./faultline
  3. Check: http://localhost:7710/api/v1/dashboard`)
		return nil
	}

	configFile := "faultline.hjson"

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Faultline Configuration Setup")
	fmt.Println("=============================")
	fmt.Println()
	fmt.Println("This will create a faultline.hjson configuration file in the current directory.")
	fmt.Println("Press Enter to accept defaults shown in [brackets].")
	fmt.Println()

	// Get current directory name as default project name
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	defaultName := filepath.Base(cwd)

	// Question 1: Project name
	projectName := prompt(reader, "Project name", defaultName)

	// Question 2: Port
	portStr := prompt(reader, "Server port", "7710")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 7710
	}

	// Question 3: App version
	appVersion := prompt(reader, "Application version to stamp on reports", "1.0.0")

	// Question 4: Webhook
	fmt.Println()
	fmt.Println("Alerts can be delivered to a webhook endpoint (Slack, PagerDuty, custom).")
	webhookURL := prompt(reader, "Alert webhook URL (or empty to skip)", "")

	configContent := generateConfig(projectName, port, appVersion, webhookURL)

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println()
	fmt.Printf("Created %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit faultline.hjson as needed")
	fmt.Println("  2. Run: ./faultline")
	fmt.Println("  3. Check: http://localhost:" + strconv.Itoa(port) + "/api/v1/dashboard")
	fmt.Println()

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func generateConfig(projectName string, port int, appVersion, webhookURL string) string {
	var sb strings.Builder

	sb.WriteString(`{
  // =============================================================================
  // Faultline Configuration
  // =============================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).
  // Every setting has a sensible default; delete anything you don't need.

  // ---------------------------------------------------------------------------
  // Project Metadata
  // ---------------------------------------------------------------------------
  project: {
    name: "`)
	sb.WriteString(escapeHJSONValue(projectName))
	sb.WriteString(`"
  }

  // ---------------------------------------------------------------------------
  // Server Settings
  // ---------------------------------------------------------------------------
  server: {
    // Host to bind to (use "0.0.0.0" to allow remote access)
    host: "127.0.0.1"

    // Port for the API
    port: `)
	sb.WriteString(strconv.Itoa(port))
	sb.WriteString(`

    // For HTTPS, uncomment and set paths to your certificates:
    // tls_cert: "~/.faultline/cert.pem"
    // tls_key: "~/.faultline/key.pem"
  }

  // ---------------------------------------------------------------------------
  // Logging
  // ---------------------------------------------------------------------------
  logging: {
    level: "info"     // "debug", "info", "warn", "error"
    format: "console" // "console" for humans, "json" for machines
  }

  // ---------------------------------------------------------------------------
  // Report Storage
  // ---------------------------------------------------------------------------
  //
  // Crash reports are persisted in SQLite. Retention runs hourly.
  storage: {
    path: ".faultline/reports.db"

    // How long to keep reports ("30d" or any Go duration)
    max_age: "30d"

    // Hard cap on stored reports; oldest are dropped first
    max_count: 10000
  }

  // ---------------------------------------------------------------------------
  // Crash Detection
  // ---------------------------------------------------------------------------
  detection: {
    // Stamped on every report so crashes can be tied to a release
    app_version: "`)
	sb.WriteString(escapeHJSONValue(appVersion))
	sb.WriteString(`"
    // build_number: "100"

    // A hang report fires when the host stops calling /heartbeat for this long.
    // Hang detection stays dormant until the first heartbeat arrives.
    hang_timeout: "10s"

    // Health check cadence and the memory pressure considered unhealthy
    health_interval: "30s"
    memory_threshold: 90
  }

  // ---------------------------------------------------------------------------
  // Analysis
  // ---------------------------------------------------------------------------
  analysis: {
    // Look-back window for pattern detection
    window: "168h"

    // Occurrences before a recurring pattern is reported
    pattern_threshold: 3

    // Supply your session count for an accurate crash-free rate:
    // total_sessions: 50000
  }

  // ---------------------------------------------------------------------------
  // Alerts
  // ---------------------------------------------------------------------------
  alerts: {
`)

	if webhookURL != "" {
		sb.WriteString(`    webhook_url: "`)
		sb.WriteString(escapeHJSONValue(webhookURL))
		sb.WriteString(`"
`)
	} else {
		sb.WriteString(`    // Deliver alerts to a webhook endpoint:
    // webhook_url: "https://hooks.example.com/faultline"
`)
	}

	sb.WriteString(`
    // Webhook delivery switch. Unset means enabled whenever a URL is set;
    // set to false to keep the URL but pause delivery.
    // webhook_enabled: true
`)

	sb.WriteString(`
    // Hourly crash counts per severity before an alert fires
    thresholds: {
      critical: 1
      high: 3
      medium: 5
      low: 10
    }

    // Restrict which alert types may fire (empty = all):
    // enabled_types: ["crash", "memory", "performance"]

    // Volume guard per (alert type, severity) pair
    rate_limit: {
      window: "5m"
      max: 5
    }
  }

  // ---------------------------------------------------------------------------
  // Exports
  // ---------------------------------------------------------------------------
  export: {
    dir: ".faultline/exports"
  }
}
`)

	return sb.String()
}

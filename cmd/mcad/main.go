package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/minimalcad/mcad/internal/config"
	"github.com/minimalcad/mcad/internal/convert"
	"github.com/minimalcad/mcad/internal/db"
	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"new": true, "list": true, "show": true, "edit": true, "delete": true,
	"import": true, "export": true, "project": true,
	"serve": true, "mcp": true,
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
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _ __ ___   ___ __ _  __| |
  | '_ \ _ \ / __/ _  |/ _  |
  | | | | | | (_| (_| | (_| |
  |_| |_| |_|\___\__,_|\__,_|

  Parametric shape documents, STL and STEP export

  Usage: mcad <command> [options]
         mcad --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(&env{})
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".mcad")

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	db.ConfigurePool(database, cfg)

	e, err := newEnv(context.Background(), database, cfg)
	if err != nil {
		fatal("failed to open document: %v", err)
	}

	if isCLIMode() {
		app := newCLIApp(e)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'mcad --help' for usage.\n")
		os.Exit(1)
	}

	if err := runMCP(e); err != nil {
		fatal("%v", err)
	}
}

// newEnv opens the working document and the optional conversion client.
func newEnv(ctx context.Context, database *sql.DB, cfg *config.Config) (*env, error) {
	docs := db.NewDocuments(database, cfg.DocumentKey)
	store, err := document.Open(ctx, docs)
	if err != nil {
		return nil, err
	}

	e := &env{db: database, docs: docs, store: store, cfg: cfg}
	// Left nil when unset so STEP conversion reports itself as unconfigured.
	if cfg.ConvertURL != "" {
		e.conv = convert.NewClient(cfg.ConvertURL, time.Duration(cfg.ConvertTimeoutSeconds)*time.Second)
	}
	return e, nil
}

// runMCP warns about unknown disabled tools and types, then serves MCP over stdio.
func runMCP(e *env) error {
	for _, name := range mcp.ValidateDisabledTools(e.cfg.DisabledTools) {
		fmt.Fprintf(os.Stderr, "warning: unknown tool in disabled_tools: %s\n", name)
	}
	for _, name := range mcp.ValidateDisabledTypes(e.cfg.DisabledTypes) {
		fmt.Fprintf(os.Stderr, "warning: unknown type in disabled_types: %s\n", name)
	}
	return mcp.Run(e.db, e.store, e.cfg, e.conv, Version)
}

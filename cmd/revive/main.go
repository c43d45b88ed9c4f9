// CLAUDE:SUMMARY CLI entry point for revive: capture, restore and diff element state in HTML files, or serve a controller over HTTP/MCP.
// Command revive captures and restores element state.
//
// Usage:
//
//	revive capture -html page.html -ids name,save -label initial -archive revive.db
//	revive restore -html page.html -label initial -archive revive.db -all -out page.html
//	revive diff    -html page.html -label initial -archive revive.db
//	revive serve   -config revive.yaml
//	revive mcp     -config revive.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "capture":
		err = cmdCapture(ctx, os.Args[2:])
	case "restore":
		err = cmdRestore(ctx, os.Args[2:])
	case "diff":
		err = cmdDiff(ctx, os.Args[2:])
	case "serve":
		err = cmdServe(ctx, os.Args[2:])
	case "mcp":
		err = cmdMCP(ctx, os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error("revive: fatal", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `revive: capture and restore element state

usage:
  revive capture -html <file> -ids <id,...> -label <label> [-archive <db>] [-batch] [-markdown]
  revive restore -html <file> -label <label> -archive <db> [-all] [-out <file>]
  revive diff    -html <file> -label <label> -archive <db>
  revive serve   -config <revive.yaml>
  revive mcp     -config <revive.yaml>

capture  Snapshots elements of an HTML file and archives them under a label.
restore  Applies an archived label to an HTML file and writes the result.
diff     Shows how the file's elements drifted from an archived label.
serve    Runs the JSON API over the configured document.
mcp      Runs the MCP tools over stdio.
`)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}

// Autopost is an automated social posting daemon.
//
// It generates content with an LLM, posts it to Threads and Twitter/X on
// a randomized daily schedule, and replies to comments on its own Threads
// posts under strict rate limits.
//
// Usage:
//
//	autopost run               Run the posting daemon
//	autopost test              Post one text and one image post, then exit
//	autopost test-text         Post one text post, then exit
//	autopost test-image        Post one image post, then exit
//	autopost test-replies      Run one reply cycle, then exit
//	autopost version           Print version and build information
//	autopost -o json version   Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"autopost/internal/app"
	"autopost/internal/buildinfo"
	"autopost/internal/config"
	"autopost/internal/schedule"
)

// main constructs the OS-level environment and delegates to run so the
// full lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run parses arguments and dispatches to the selected command. Arguments
// are parsed by hand; the flag package's package-level globals make
// concurrent test invocations awkward, and the surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	configPath := "config.yaml"
	logLevel := ""
	outputFmt := ""
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-log-level" && i+1 < len(args):
			logLevel = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-log-level="):
			logLevel = strings.TrimPrefix(args[i], "-log-level=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "", "run":
		return runDaemon(ctx, stdout, configPath, logLevel)
	case "test", "test-text", "test-image", "test-replies":
		return runTest(ctx, stdout, configPath, logLevel, command)
	case "version":
		return runVersion(stdout, outputFmt)
	case "help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// setup loads configuration and builds the application.
func setup(ctx context.Context, stdout io.Writer, configPath, logLevel string) (*app.AutoPoster, *slog.Logger, error) {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting autopost",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("config loaded", "path", configPath)

	// Reconfigure the logger now that the desired level is known. The
	// command-line flag wins over the file.
	levelName := cfg.LogLevel
	if logLevel != "" {
		levelName = logLevel
	}
	if levelName != "" {
		level, err := config.ParseLogLevel(levelName)
		if err != nil {
			return nil, nil, err
		}
		logger = newLogger(stdout, level)
	}

	poster, err := app.New(ctx, logger, cfg)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("verifying platform credentials")
	if err := poster.Verify(ctx); err != nil {
		poster.Close()
		return nil, nil, fmt.Errorf("credential check failed: %w", err)
	}

	return poster, logger, nil
}

// runDaemon starts the scheduler and runs until interrupted.
func runDaemon(ctx context.Context, stdout io.Writer, configPath, logLevel string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	poster, logger, err := setup(ctx, stdout, configPath, logLevel)
	if err != nil {
		return err
	}
	defer poster.Close()

	err = poster.Run(ctx)
	logger.Info("shutdown complete")
	if err == context.Canceled {
		return nil
	}
	return err
}

// runTest performs a single posting or reply cycle and exits.
func runTest(ctx context.Context, stdout io.Writer, configPath, logLevel, mode string) error {
	poster, logger, err := setup(ctx, stdout, configPath, logLevel)
	if err != nil {
		return err
	}
	defer poster.Close()

	switch mode {
	case "test-text":
		logger.Info("test mode: text post")
		if !poster.PostCycle(ctx, schedule.KindText) {
			return fmt.Errorf("text post test failed")
		}
	case "test-image":
		logger.Info("test mode: image post")
		if !poster.PostCycle(ctx, schedule.KindImage) {
			return fmt.Errorf("image post test failed")
		}
	case "test-replies":
		logger.Info("test mode: reply cycle")
		if !poster.RepliesEnabled() {
			return fmt.Errorf("auto-replies are not enabled (set ENABLE_AUTO_REPLIES=true or threads.enable_auto_replies)")
		}
		poster.ProcessReplies(ctx)
	case "test":
		logger.Info("test mode: text and image posts")
		textOK := poster.PostCycle(ctx, schedule.KindText)
		time.Sleep(5 * time.Second)
		imageOK := poster.PostCycle(ctx, schedule.KindImage)
		if !textOK || !imageOK {
			return fmt.Errorf("test failed (text ok: %v, image ok: %v)", textOK, imageOK)
		}
	}

	logger.Info("test complete")
	return nil
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Autopost - Automated social posting daemon")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: autopost [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run           Run the posting daemon (default)")
	fmt.Fprintln(w, "  test          Post one text and one image post, then exit")
	fmt.Fprintln(w, "  test-text     Post one text post, then exit")
	fmt.Fprintln(w, "  test-image    Post one image post, then exit")
	fmt.Fprintln(w, "  test-replies  Run one reply cycle, then exit")
	fmt.Fprintln(w, "  version       Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>     Path to config file (default: config.yaml)")
	fmt.Fprintln(w, "  -log-level <level> Log level: debug, info, warn, error")
	fmt.Fprintln(w, "  -o, --output fmt   Output format: text (default) or json")
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

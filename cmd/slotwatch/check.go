package main

import (
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/slotwatch"
	"github.com/jpalmerr/slotwatch/config"
	"github.com/jpalmerr/slotwatch/internal/cooldown"
	"github.com/jpalmerr/slotwatch/internal/notify"
)

func init() {
	flags := rootCmd.Flags()
	flags.StringP("notification-type", "n", string(notify.ModeNone), "how to announce matches: none or sms")
	flags.StringP("recipient", "r", "", "phone number to notify (required)")
	flags.String("loglevel", "INFO", "log level: DEBUG, INFO, WARNING, ERROR or CRITICAL")
	flags.StringP("config", "c", "", "path to registry file (default: built-in registry)")
	flags.Bool("json-logs", false, "write logs as JSON")
	flags.Bool("fail-fast", false, "stop at the first page that cannot be fetched")
	_ = rootCmd.MarkFlagRequired("recipient")
}

// parseLevel maps a level name to a slog level.
// WARNING and CRITICAL are accepted as aliases of WARN and ERROR.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR", "CRITICAL":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// newLogger creates the CLI logger. Text by default, JSON with --json-logs.
func newLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads the registry file, or the built-in registry when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func runCheck(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	modeFlag, _ := flags.GetString("notification-type")
	recipient, _ := flags.GetString("recipient")
	levelFlag, _ := flags.GetString("loglevel")
	configFile, _ := flags.GetString("config")
	jsonLogs, _ := flags.GetBool("json-logs")
	failFast, _ := flags.GetBool("fail-fast")

	level, err := parseLevel(levelFlag)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), level, jsonLogs)

	mode, err := notify.ParseMode(modeFlag)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	expectations, err := config.BuildExpectations(cfg)
	if err != nil {
		return fmt.Errorf("failed to build expectations: %w", err)
	}

	// credentials are checked here, before any page is fetched
	notifier, err := notify.New(mode, recipient, notify.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to set up %s notifications: %w", mode, err)
	}

	opts := append(config.BuildOptions(cfg),
		slotwatch.WithExpectations(expectations...),
		slotwatch.WithNotifier(notifier),
		slotwatch.WithLogger(logger),
		slotwatch.WithFailFast(failFast),
	)

	if copts, ok := config.BuildCooldownOptions(cfg.Cooldown); ok {
		store := cooldown.New(copts)
		defer func() { _ = store.Close() }()
		opts = append(opts, slotwatch.WithCooldown(store))
		logger.Info("cooldown enabled", "redis_addr", copts.Addr, "ttl", store.TTL().String())
	}

	checker, err := slotwatch.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create checker: %w", err)
	}
	defer checker.Close()

	logger.Info("config loaded",
		"expectations", len(expectations),
		"notification_type", mode.String(),
	)

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := checker.Run(ctx); err != nil {
		return fmt.Errorf("check aborted: %w", err)
	}
	return nil
}

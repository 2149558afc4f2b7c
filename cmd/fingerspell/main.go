// Command fingerspell is a British Sign Language fingerspelling trainer. It
// receives hand keypoints from a tracker over UDP, recognizes the static
// letter shapes and walks the learner through a lesson.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/fingerspell/internal/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "fingerspell",
	Short:         "BSL fingerspelling trainer",
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `fingerspell recognizes British Sign Language fingerspelling from hand
keypoints streamed by a tracker and guides the learner through lessons.

Examples:
  fingerspell run
  fingerspell run --lesson practice --port 12345
  fingerspell lessons
  fingerspell parse "[320, 240, 0, ...]"`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.fingerspell/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}

// loadConfig reads the config file. A missing default file yields the
// built-in defaults; a missing explicit file is an error.
func loadConfig() (config.Config, []string, error) {
	path := configPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}

	cfg, warnings, err := config.Load(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil, nil
		}
		return cfg, nil, err
	}
	return cfg, warnings, nil
}

// newLogger builds the process logger. The --log-level flag wins over the
// config file.
func newLogger(cfg config.Config) (*slog.Logger, error) {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}

	var l slog.Level
	if level != "" {
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger, nil
}

// setup loads the config and logger shared by all subcommands and logs the
// config warnings once.
func setup() (config.Config, *slog.Logger, error) {
	cfg, warnings, err := loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return cfg, nil, err
	}
	for _, w := range warnings {
		logger.Warn("config", "warning", w)
	}
	return cfg, logger, nil
}

// findWebDir returns the configured web directory, or searches "web",
// "../web", "../../web" and ~/.fingerspell/web. Returns "" if none exists.
func findWebDir(cfg config.Config) string {
	if cfg.Server.WebDir != "" {
		return cfg.Server.WebDir
	}

	candidates := []string{"web", "../web", "../../web", filepath.Join(cfg.DataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/celestialecho/internal/config"
	"github.com/user/celestialecho/internal/horizons"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "celestialecho",
	Short: "Light-time echoes from JPL HORIZONS",
	Long: `celestialecho resolves celestial bodies against the JPL HORIZONS
telnet service and echoes back once a signal could have made the round
trip at the speed of light.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath,
		"config",
		filepath.Join(os.Getenv("HOME"), ".celestialecho", "config.json"),
		"config file path")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// horizonsConfig maps the file config onto a session config.
func horizonsConfig(cfg *config.Config) horizons.Config {
	return horizons.Config{
		Host:        cfg.Horizons.Host,
		Port:        cfg.Horizons.Port,
		DialTimeout: time.Duration(cfg.Horizons.DialTimeoutSeconds) * time.Second,
		StepTimeout: time.Duration(cfg.Horizons.StepTimeoutSeconds) * time.Second,
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var amb *horizons.AmbiguousMatchError
		if errors.As(err, &amb) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

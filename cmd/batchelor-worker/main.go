package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/batchelor-project/batchelor/internal/config"
	"github.com/batchelor-project/batchelor/internal/version"
	"github.com/batchelor-project/batchelor/task"
	"github.com/batchelor-project/batchelor/transport/client"
	"github.com/batchelor-project/batchelor/worker"
)

var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

var rootCmd = &cobra.Command{
	Use:   "batchelor-worker",
	Short: "Batchelor worker: runs task factories and reports back to a dispatch head",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
	RunE: run,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("worker-id", "", "unique worker id (required)")
	flags.String("namespace", "default", "namespace to fetch tasks from")
	flags.String("head", "http://localhost:28082", "comma-separated dispatch head endpoints")
	flags.String("factories-config", "", "path to the factories JSON config (required)")
	flags.StringToString("metric", nil, "static metric key=value, repeatable")
	flags.StringToInt("resource", nil, "resource budget name=qty, repeatable")
	flags.Duration("request-interval", 5*time.Second, "fetchTask polling interval")
	flags.Duration("idle-timeout", 0, "exit if no work occurs for this long (0 disables)")
	flags.Duration("available-timeout", 0, "stop advertising availability after this long (0 disables)")
	flags.Int("max-signals", 3, "shutdown signals tolerated before escalating to kill")
	flags.String("token", "", "bearer token for the head")
	flags.String("basic-user", "", "basic auth username for the head")
	flags.String("basic-pass", "", "basic auth password for the head")

	for _, name := range []string{
		"worker-id", "namespace", "head", "factories-config", "metric", "resource",
		"request-interval", "idle-timeout", "available-timeout", "max-signals",
		"token", "basic-user", "basic-pass",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
	viper.SetEnvPrefix("batchelor")
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, args []string) error {
	profile := &config.WorkerProfile{
		WorkerID:      viper.GetString("worker-id"),
		NamespaceID:   viper.GetString("namespace"),
		HeadEndpoints: strings.Split(viper.GetString("head"), ","),
		Token:         viper.GetString("token"),
		BasicUser:     viper.GetString("basic-user"),
		BasicPass:     viper.GetString("basic-pass"),
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	factoriesPath := viper.GetString("factories-config")
	if factoriesPath == "" {
		return fmt.Errorf("--factories-config is required")
	}
	factories, err := config.LoadFactories(factoriesPath)
	if err != nil {
		return err
	}

	resourceBudget, err := cmd.Flags().GetStringToInt("resource")
	if err != nil {
		return err
	}
	metrics, err := cmd.Flags().GetStringToString("metric")
	if err != nil {
		return err
	}

	clientOpts := []client.Option{}
	if profile.Token != "" {
		clientOpts = append(clientOpts, client.WithBearerToken(profile.Token))
	}
	if profile.BasicUser != "" {
		clientOpts = append(clientOpts, client.WithBasicAuth(profile.BasicUser, profile.BasicPass))
	}
	headClient := client.New(profile.HeadEndpoints, clientOpts...)

	requestInterval := viper.GetDuration("request-interval")
	idleTimeout := viper.GetDuration("idle-timeout")
	availableTimeout := viper.GetDuration("available-timeout")

	cfg := worker.Config{
		WorkerID:        profile.WorkerID,
		NamespaceID:     profile.NamespaceID,
		Metrics:         metrics,
		Factories:       factories,
		ResourceBudget:  resourceBudget,
		RequestInterval: requestInterval,
		MaxSignals:      viper.GetInt("max-signals"),
	}
	if idleTimeout > 0 {
		cfg.IdleTimeout = &idleTimeout
	}
	if availableTimeout > 0 {
		cfg.AvailableTimeout = &availableTimeout
	}

	loop := worker.New(cfg, headClient)

	slog.Info("batchelor-worker starting",
		"workerId", profile.WorkerID, "namespace", profile.NamespaceID,
		"version", version.String(), "eventTypes", eventTypeNames(factories))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, terminationSignals...)
	go func() {
		for range sig {
			slog.Info("batchelor-worker received shutdown signal")
			loop.RequestShutdown()
		}
	}()

	loop.Run(ctx)
	return nil
}

func eventTypeNames(factories map[string]task.Factory) []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("batchelor-worker exited with error", "error", err)
		os.Exit(1)
	}
}

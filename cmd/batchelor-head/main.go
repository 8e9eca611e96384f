package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/batchelor-project/batchelor/auth"
	"github.com/batchelor-project/batchelor/dispatch"
	"github.com/batchelor-project/batchelor/internal/config"
	"github.com/batchelor-project/batchelor/internal/version"
	"github.com/batchelor-project/batchelor/metrics"
	"github.com/batchelor-project/batchelor/store"
	"github.com/batchelor-project/batchelor/store/db/postgres"
	"github.com/batchelor-project/batchelor/store/db/sqlite"
	"github.com/batchelor-project/batchelor/sweeper"
	"github.com/batchelor-project/batchelor/transport/httpapi"
)

var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

var rootCmd = &cobra.Command{
	Use:   "batchelor-head",
	Short: "Batchelor dispatch head: task store, scheduler, and control API",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
	RunE: run,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "demo", `"dev", "demo", or "prod"`)
	flags.String("addr", "", "bind address")
	flags.Int("port", 28082, "bind port")
	flags.String("data", "./data", "data directory")
	flags.String("driver", "sqlite", "storage driver: sqlite or postgres")
	flags.String("dsn", "", "database source name")
	flags.String("namespaces", "default", "comma-separated namespaces the sweeper cleans")
	flags.String("jwt-secret", "", "HMAC secret for verifying Bearer tokens")
	flags.String("tls-cert", "", "TLS certificate file; enables HTTPS when set together with --tls-key")
	flags.String("tls-key", "", "TLS private key file; enables HTTPS when set together with --tls-cert")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "namespaces", "jwt-secret", "tls-cert", "tls-key"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
	viper.SetEnvPrefix("batchelor")
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, args []string) error {
	profile := &config.HeadProfile{
		Mode:      viper.GetString("mode"),
		Addr:      viper.GetString("addr"),
		Port:      viper.GetInt("port"),
		Data:      viper.GetString("data"),
		Driver:    viper.GetString("driver"),
		DSN:       viper.GetString("dsn"),
		JWTSecret: viper.GetString("jwt-secret"),

		TLSCertFile: viper.GetString("tls-cert"),
		TLSKeyFile:  viper.GetString("tls-key"),
	}
	profile.FromEnv()
	if err := profile.Validate(); err != nil {
		return err
	}

	driver, err := openDriver(profile.Driver, profile.DSN)
	if err != nil {
		return fmt.Errorf("failed to open store driver: %w", err)
	}
	defer driver.Close()

	st := store.NewStore(driver)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	service := dispatch.NewService(driver, profile.ZombieTTL)

	exporter := metrics.NewExporter(prometheus.NewRegistry())
	service.RegisterObserver(exporter)

	namespaces := strings.Split(viper.GetString("namespaces"), ",")
	sw := sweeper.New(driver, service, namespaces)
	sw.ZombieTTL = profile.ZombieTTL
	sw.DeleteTTL = profile.DeleteTTL
	sw.Interval = profile.SweepInterval
	go sw.Run(ctx)

	verifier := buildVerifier(profile)
	server := httpapi.New(service, verifier, exporter.Handler())

	addr := fmt.Sprintf("%s:%d", profile.Addr, profile.Port)

	errCh := make(chan error, 1)
	if profile.TLSEnabled() {
		slog.Info("batchelor-head starting", "addr", addr, "version", version.String(), "driver", profile.Driver, "tls", true)
		go func() { errCh <- server.StartTLS(addr, profile.TLSCertFile, profile.TLSKeyFile) }()
	} else {
		slog.Info("batchelor-head starting", "addr", addr, "version", version.String(), "driver", profile.Driver, "tls", false)
		go func() { errCh <- server.Start(addr) }()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, terminationSignals...)

	select {
	case err := <-errCh:
		return err
	case <-sig:
		slog.Info("batchelor-head shutting down")
		cancel()
		return nil
	}
}

func openDriver(driverName, dsn string) (store.Driver, error) {
	switch store.DSNBackend(dsn) {
	case "postgres":
		return postgres.NewDB(dsn)
	default:
		if driverName == "postgres" {
			return postgres.NewDB(dsn)
		}
		return sqlite.NewDB(dsn)
	}
}

func buildVerifier(profile *config.HeadProfile) *auth.Verifier {
	secret := []byte(profile.JWTSecret)
	if len(secret) == 0 {
		slog.Warn("no jwt secret configured; Bearer tokens will all be rejected")
	}
	return auth.New(secret, map[string]auth.BasicUser{}, "batchelor")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("batchelor-head exited with error", "error", err)
		os.Exit(1)
	}
}

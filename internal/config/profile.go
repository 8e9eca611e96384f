// Package config holds the head and worker process profiles: the settings
// loaded from flags/environment/.env before the dispatch service, store
// driver, or worker loop can be constructed.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// HeadProfile is the configuration needed to start a batchelor-head process.
type HeadProfile struct {
	Mode     string // "dev", "demo", or "prod"
	Addr     string
	Port     int
	UnixSock string
	Data     string
	Driver   string // "sqlite" or "postgres"
	DSN      string

	ZombieTTL     time.Duration
	DeleteTTL     time.Duration
	SweepInterval time.Duration

	JWTSecret string

	// TLSCertFile/TLSKeyFile are optional; when both are set the head
	// listens with TLS instead of plaintext HTTP/h2c (spec §6: "optional
	// ... TLS-cert ... settings").
	TLSCertFile string
	TLSKeyFile  string
}

// TLSEnabled reports whether both halves of a TLS keypair were configured.
func (p *HeadProfile) TLSEnabled() bool {
	return p.TLSCertFile != "" && p.TLSKeyFile != ""
}

func (p *HeadProfile) IsDev() bool { return p.Mode != "prod" }

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv fills in Driver, DSN and JWTSecret, where flags left them unset,
// from BATCHELOR_DRIVER, BATCHELOR_DSN and BATCHELOR_JWT_SECRET.
func (p *HeadProfile) FromEnv() {
	if p.Driver == "" {
		p.Driver = getEnvOrDefault("BATCHELOR_DRIVER", "sqlite")
	}
	if p.DSN == "" {
		p.DSN = getEnvOrDefault("BATCHELOR_DSN", "")
	}
	if p.JWTSecret == "" {
		p.JWTSecret = getEnvOrDefault("BATCHELOR_JWT_SECRET", "")
	}
}

func checkDataDir(dataDir string) (string, error) {
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}
	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0770); err != nil {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes Mode, resolves a data directory, and defaults the
// sqlite DSN to a file under it when none was given explicitly.
func (p *HeadProfile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Data == "" {
		p.Data = "./data"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("batchelor_%s.db", p.Mode))
	}
	if p.ZombieTTL == 0 {
		p.ZombieTTL = 5 * time.Minute
	}
	if p.DeleteTTL == 0 {
		p.DeleteTTL = time.Hour
	}
	if p.SweepInterval == 0 {
		p.SweepInterval = 5 * time.Second
	}
	return nil
}

// WorkerProfile is the configuration needed to start a batchelor-worker
// process.
type WorkerProfile struct {
	WorkerID      string
	NamespaceID   string
	HeadEndpoints []string

	RequestInterval  time.Duration
	IdleTimeout      time.Duration
	AvailableTimeout time.Duration
	MaxSignals       int

	Token     string
	BasicUser string
	BasicPass string
}

func (p *WorkerProfile) Validate() error {
	if p.WorkerID == "" {
		return errors.New("worker id must not be empty")
	}
	if p.NamespaceID == "" {
		p.NamespaceID = "default"
	}
	if len(p.HeadEndpoints) == 0 {
		return errors.New("at least one head endpoint is required")
	}
	if p.RequestInterval == 0 {
		p.RequestInterval = 5 * time.Second
	}
	if p.MaxSignals == 0 {
		p.MaxSignals = 3
	}
	return nil
}

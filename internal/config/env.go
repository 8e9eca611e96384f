package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the current directory, same as the
// head/worker/control binaries did as a service-locator-free replacement for
// systemd EnvironmentFile=. It is a no-op (not an error) when run under a
// service manager or when no .env file is present.
func LoadDotEnv() {
	if isRunningAsService() {
		return
	}
	_ = godotenv.Load()
}

// isRunningAsService reports whether INVOCATION_ID (set by systemd for every
// unit it starts) is present, in which case env vars come from the unit file
// and a local .env would only cause confusion.
func isRunningAsService() bool {
	_, ok := os.LookupEnv("INVOCATION_ID")
	return ok
}

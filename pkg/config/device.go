package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	deviceIDFile   = "device-id"
	hostnamePrefix = "co2monitor-"
)

// DeviceID returns the identifier stored in stateDir, generating and storing
// one on first use.
func DeviceID(stateDir string) (string, error) {
	path := filepath.Join(stateDir, deviceIDFile)
	b, err := os.ReadFile(path)
	if err == nil {
		if id, perr := uuid.ParseBytes([]byte(strings.TrimSpace(string(b)))); perr == nil {
			return id.String(), nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.New().String()
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return "", fmt.Errorf("state dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return id, nil
}

// Hostname derives the default network name from a device id.
func Hostname(id string) string {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 6 {
		short = short[:6]
	}
	return hostnamePrefix + short
}

// ConfigPath is where the portal stores settings when no file was given.
func ConfigPath(stateDir string) string {
	return filepath.Join(stateDir, "config.yaml")
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pink-tools/se-player/internal/bridge"
)

const (
	ServiceName   = "se-player"
	DefaultVolume = 50
)

type Config struct {
	Volume      int
	DeviceID    string
	BridgeAddr  string
	DropDir     string
	MetricsAddr string
	LiveReroute bool
	KeymapPath  string
	Keymap      *Keymap
}

// LoadEnv loads .env from the working directory, then from the user config
// directory. Variables already set win.
func LoadEnv() {
	_ = godotenv.Load()
	if dir, err := Dir(); err == nil {
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}
}

// Dir is <user config dir>/se-player.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, ServiceName), nil
}

func Load() (*Config, error) {
	cfg := &Config{
		Volume:      DefaultVolume,
		DeviceID:    os.Getenv("SE_PLAYER_DEVICE"),
		BridgeAddr:  BridgeAddr(),
		DropDir:     os.Getenv("SE_PLAYER_DROP_DIR"),
		MetricsAddr: os.Getenv("SE_PLAYER_METRICS_ADDR"),
		LiveReroute: true,
		KeymapPath:  os.Getenv("SE_PLAYER_KEYMAP"),
	}

	if v := os.Getenv("SE_PLAYER_VOLUME"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 || n > 100 {
			return nil, fmt.Errorf("SE_PLAYER_VOLUME must be 0-100, got %q", v)
		}
		cfg.Volume = n
	}

	if v := os.Getenv("SE_PLAYER_LIVE_REROUTE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SE_PLAYER_LIVE_REROUTE: %w", err)
		}
		cfg.LiveReroute = b
	}

	if cfg.DropDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		cfg.DropDir = filepath.Join(dir, "drop")
	}

	km := DefaultKeymap()
	if cfg.KeymapPath != "" {
		loaded, err := LoadKeymap(cfg.KeymapPath)
		if err != nil {
			return nil, err
		}
		km = loaded
	}
	cfg.Keymap = km

	return cfg, nil
}

// BridgeAddr is the configured bridge address, shared by the daemon and
// the CLI client commands.
func BridgeAddr() string {
	if v := os.Getenv("SE_PLAYER_BRIDGE_ADDR"); v != "" {
		return v
	}
	return bridge.DefaultAddr
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  http_address: ":9000"
  admin_password: "secret"
game:
  soft_timeout: 3s
  hard_timeout: 15s
  round_limit: 50
database:
  enabled: false
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.HTTPAddress != ":9000" {
		t.Errorf("Expected http_address :9000, got %s", cfg.Server.HTTPAddress)
	}
	if cfg.Server.AdminPassword != "secret" {
		t.Errorf("Expected admin password from file, got %q", cfg.Server.AdminPassword)
	}
	// defaults fill in what the file omits
	if cfg.Server.RPCAddress != ":8081" {
		t.Errorf("Expected default rpc_address :8081, got %s", cfg.Server.RPCAddress)
	}
	if cfg.Game.SoftTimeout != 3*time.Second || cfg.Game.HardTimeout != 15*time.Second {
		t.Errorf("Unexpected timeouts: %+v", cfg.Game)
	}
	if cfg.Game.RoundLimit != 50 {
		t.Errorf("Expected round limit 50, got %d", cfg.Game.RoundLimit)
	}
	if cfg.Database.Enabled {
		t.Error("Database should be disabled")
	}
}

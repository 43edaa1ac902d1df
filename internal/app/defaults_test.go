package app

import (
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("ASTROCAT_CONFIG_PATH", "/etc/astrocat.toml")
		t.Setenv("ASTROCAT_HOME", "/srv/astrocat")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults failed: %v", err)
		}
		if defaults["config_path"] != "/etc/astrocat.toml" {
			t.Errorf("config_path = %s", defaults["config_path"])
		}
		if defaults["base_dir"] != "/srv/astrocat" {
			t.Errorf("base_dir = %s", defaults["base_dir"])
		}
		if defaults["log_dir"] != filepath.Join("/srv/astrocat", "log") {
			t.Errorf("log_dir = %s", defaults["log_dir"])
		}
	})

	t.Run("falls back to home directory", func(t *testing.T) {
		t.Setenv("ASTROCAT_CONFIG_PATH", "")
		t.Setenv("ASTROCAT_HOME", "")
		t.Setenv("HOME", "/home/obs")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults failed: %v", err)
		}
		if defaults["config_path"] != "/home/obs/.config/astrocat.toml" {
			t.Errorf("config_path = %s", defaults["config_path"])
		}
		if defaults["base_dir"] != "/home/obs/.local/share/astrocat" {
			t.Errorf("base_dir = %s", defaults["base_dir"])
		}
	})
}

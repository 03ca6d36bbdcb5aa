package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/bin/mpv",
			expected: filepath.Join(home, "bin", "mpv"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/usr/bin/mpv",
			expected: "/usr/bin/mpv",
		},
		{
			name:     "bare command unchanged",
			input:    "mpv",
			expected: "mpv",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandPath(tt.input); got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetPlayerConfig_Defaults(t *testing.T) {
	cfg := &Config{}

	pc := cfg.GetPlayerConfig()

	if pc.DriverMode != "precise" {
		t.Errorf("DriverMode = %q, want precise", pc.DriverMode)
	}
	if pc.Executable != "mpv" {
		t.Errorf("Executable = %q, want mpv", pc.Executable)
	}
	if pc.SampleIntervalSeconds != 5 {
		t.Errorf("SampleIntervalSeconds = %d, want 5", pc.SampleIntervalSeconds)
	}
	if pc.CompletionThreshold != 0.98 {
		t.Errorf("CompletionThreshold = %v, want 0.98", pc.CompletionThreshold)
	}
	if pc.ConnectTimeoutSeconds != 5 {
		t.Errorf("ConnectTimeoutSeconds = %d, want 5", pc.ConnectTimeoutSeconds)
	}
}

func TestGetPlayerConfig_BoundsClamped(t *testing.T) {
	cfg := &Config{Player: PlayerConfig{
		DriverMode:            "vlc_rc",
		SampleIntervalSeconds: 999,
		CompletionThreshold:   1.5,
		ConnectTimeoutSeconds: -1,
	}}

	pc := cfg.GetPlayerConfig()

	if pc.DriverMode != "precise" {
		t.Errorf("DriverMode = %q, want precise for unknown mode", pc.DriverMode)
	}
	if pc.SampleIntervalSeconds != 5 {
		t.Errorf("SampleIntervalSeconds = %d, want default 5", pc.SampleIntervalSeconds)
	}
	if pc.CompletionThreshold != 0.98 {
		t.Errorf("CompletionThreshold = %v, want default 0.98", pc.CompletionThreshold)
	}
	if pc.ConnectTimeoutSeconds != 5 {
		t.Errorf("ConnectTimeoutSeconds = %d, want default 5", pc.ConnectTimeoutSeconds)
	}
}

func TestGetPlayerConfig_ValidValuesKept(t *testing.T) {
	cfg := &Config{Player: PlayerConfig{
		DriverMode:            "coarse",
		Executable:            "/usr/bin/vlc",
		SampleIntervalSeconds: 10,
		CompletionThreshold:   0.9,
		ConnectTimeoutSeconds: 3,
	}}

	pc := cfg.GetPlayerConfig()

	if pc.DriverMode != "coarse" {
		t.Errorf("DriverMode = %q, want coarse", pc.DriverMode)
	}
	if pc.Executable != "/usr/bin/vlc" {
		t.Errorf("Executable = %q, want /usr/bin/vlc", pc.Executable)
	}
	if pc.SampleIntervalSeconds != 10 {
		t.Errorf("SampleIntervalSeconds = %d, want 10", pc.SampleIntervalSeconds)
	}
	if pc.CompletionThreshold != 0.9 {
		t.Errorf("CompletionThreshold = %v, want 0.9", pc.CompletionThreshold)
	}
}

func TestNotificationsEnabled(t *testing.T) {
	off := false
	on := true

	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"default on", Config{}, true},
		{"explicit off", Config{Notifications: &off}, false},
		{"explicit on", Config{Notifications: &on}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.NotificationsEnabled(); got != tt.want {
				t.Errorf("NotificationsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

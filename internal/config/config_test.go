package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"spinwheel/internal/engine"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		want    Config
		wantErr bool
	}{
		{
			name: "defaults",
			want: Config{Port: 8080, WheelSize: 500, FrameInterval: engine.DefaultFrameInterval},
		},
		{
			name: "flags win over env",
			args: []string{"-p", "9000", "-db", "wheel.db", "-frame", "10ms"},
			env:  map[string]string{"PORT": "7000", "DB_PATH": "other.db"},
			want: Config{Port: 9000, DBPath: "wheel.db", WheelSize: 500, FrameInterval: 10 * time.Millisecond},
		},
		{
			name: "env fallback",
			env: map[string]string{
				"PORT": "7000", "PRIZES_FILE": "prizes.yaml", "DAILY_RESET": "0 0 * * *",
				"FRAME_INTERVAL": "20ms", "WHEEL_SIZE": "300", "VERBOSE": "true",
			},
			want: Config{
				Port: 7000, PrizesFile: "prizes.yaml", DailyReset: "0 0 * * *",
				FrameInterval: 20 * time.Millisecond, WheelSize: 300, Verbose: true,
			},
		},
		{name: "bad port env", env: map[string]string{"PORT": "abc"}, wantErr: true},
		{name: "port out of range", args: []string{"-p", "70000"}, wantErr: true},
		{name: "bad cron spec", args: []string{"-daily-reset", "every day"}, wantErr: true},
		{name: "tiny wheel", args: []string{"-size", "10"}, wantErr: true},
		{name: "unknown flag", args: []string{"-nope"}, wantErr: true},
	}

	keys := []string{"PORT", "DB_PATH", "PRIZES_FILE", "DAILY_RESET", "FRAME_INTERVAL", "WHEEL_SIZE", "VERBOSE"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range keys {
				t.Setenv(k, tt.env[k])
			}

			got, err := ParseFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Expected missing .env to be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("SPINWHEEL_TEST_KEY=hello\n"), 0o644)
	t.Setenv("SPINWHEEL_TEST_KEY", "")
	os.Unsetenv("SPINWHEEL_TEST_KEY")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("SPINWHEEL_TEST_KEY"); got != "hello" {
		t.Errorf("Expected hello, got %q", got)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECURELINK_SERVER", "")
	t.Setenv("SECURELINK_ACCESS_TOKEN", "")

	got := load(nil, filepath.Join(t.TempDir(), "missing.env"))
	want := &Config{ServerEndpointAddr: "127.0.0.1:50051", Timeout: 30 * time.Second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Precedence(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("SECURELINK_ACCESS_TOKEN=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SECURELINK_SERVER", "files.example.com:50051")
	// godotenv.Load does not override variables that are already set
	t.Setenv("SECURELINK_ACCESS_TOKEN", "")
	os.Unsetenv("SECURELINK_ACCESS_TOKEN")

	got := load([]string{"-timeout", "5s", "-x", "ignored", "-a", "localhost:9000"}, envFile)

	want := &Config{
		ServerEndpointAddr: "localhost:9000",
		AccessToken:        "from-dotenv",
		Timeout:            5 * time.Second,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags_BadDurationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	parseFlags(&Config{}, []string{"-timeout", "soon"})
}

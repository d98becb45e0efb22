package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ppiankov/precedent/internal/model"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"Crime fell 20% in Texas", 60, "crime-fell-20-in-texas"},
		{"  --Hello, World!--  ", 60, "hello-world"},
		{"abc def ghi", 5, "abc-d"},
		{"abcd efgh", 5, "abcd"},
		{"!!!", 60, "claim"},
		{"Ünïcode names", 60, "ünïcode-names"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in, tt.n); got != tt.want {
			t.Errorf("slugify(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("short", 10); got != "short" {
		t.Errorf("shorten = %q", got)
	}
	if got := shorten("a longer sentence", 8); got != "a longer..." {
		t.Errorf("shorten = %q", got)
	}
}

func TestRedacted(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Embedding.APIKey = "sk-1234567890"
	cfg.FactCheck.APIKey = "short"
	cfg.Cache.Redis.Password = "hunter2hunter2"

	out := redacted(*cfg)
	if out.Embedding.APIKey != "sk-1****" {
		t.Errorf("embedding key = %q", out.Embedding.APIKey)
	}
	if out.FactCheck.APIKey != "****" {
		t.Errorf("factcheck key = %q", out.FactCheck.APIKey)
	}
	if out.LLM.APIKey != "" {
		t.Errorf("empty key should stay empty, got %q", out.LLM.APIKey)
	}
	if out.Cache.Redis.Password != "hunt****" {
		t.Errorf("redis password = %q", out.Cache.Redis.Password)
	}
	if cfg.Embedding.APIKey != "sk-1234567890" {
		t.Error("redacted must not modify the original config")
	}
}

func TestWritePrecedence(t *testing.T) {
	var buf bytes.Buffer
	writePrecedence(&buf, "# ")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(precedence)+1 {
		t.Fatalf("got %d lines, want %d", len(lines), len(precedence)+1)
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "# ") {
			t.Errorf("line %q is not commented", l)
		}
	}
	if lines[1] != "#   1. CLI flags" {
		t.Errorf("first source = %q", lines[1])
	}
}

func TestRegisterDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	registerDefaults("", reflect.ValueOf(*model.DefaultConfig()))

	if got := viper.GetInt("retrieval.top_k"); got != 5 {
		t.Errorf("retrieval.top_k = %d, want 5", got)
	}
	if got := viper.GetString("archive.milvus.metric"); got != "ip" {
		t.Errorf("archive.milvus.metric = %q, want ip", got)
	}
	if got := viper.GetDuration("fetch.timeout"); got != 30*time.Second {
		t.Errorf("fetch.timeout = %v, want 30s", got)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Setenv("PRECEDENT_RETRIEVAL_TOP_K", "9")
	t.Setenv("GOOGLE_FACTCHECK_API_KEY", "from-env")

	registerDefaults("", reflect.ValueOf(*model.DefaultConfig()))
	viper.SetEnvPrefix("PRECEDENT")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Retrieval.TopK != 9 {
		t.Errorf("TopK = %d, want 9", cfg.Retrieval.TopK)
	}
	if cfg.FactCheck.APIKey != "from-env" {
		t.Errorf("factcheck key = %q, want from-env", cfg.FactCheck.APIKey)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := "PRECEDENT_DOTENV_PROBE=from-file\nPRECEDENT_DOTENV_KEEP=from-file\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("PRECEDENT_DOTENV_KEEP", "from-shell")
	t.Cleanup(func() { _ = os.Unsetenv("PRECEDENT_DOTENV_PROBE") })

	loadDotEnv()

	if got := os.Getenv("PRECEDENT_DOTENV_PROBE"); got != "from-file" {
		t.Errorf("PRECEDENT_DOTENV_PROBE = %q, want from-file", got)
	}
	if got := os.Getenv("PRECEDENT_DOTENV_KEEP"); got != "from-shell" {
		t.Errorf("PRECEDENT_DOTENV_KEEP = %q, shell value should win", got)
	}
}

package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/precedent/internal/model"
)

// precedence lists config sources, highest priority first.
var precedence = []string{
	"CLI flags",
	"Environment variables (PRECEDENT_*, OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_FACTCHECK_API_KEY)",
	"Config file (~/.precedent/config.yaml)",
	"Defaults",
}

func writePrecedence(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%sSources, highest priority first:\n", prefix)
	for i, src := range precedence {
		fmt.Fprintf(w, "%s  %d. %s\n", prefix, i+1, src)
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Precedent configuration",
	Long: `Inspect or create the Precedent config file.

Flags override PRECEDENT_* environment variables, which override
~/.precedent/config.yaml, which overrides built-in defaults.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Print the merged configuration (defaults, file, env, flags) as YAML. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		source := "none, using defaults"
		if used := viper.ConfigFileUsed(); used != "" {
			source = used
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "config file: %s\n\n", source)

		out, err := yaml.Marshal(redacted(*cfg))
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, string(out))
		writePrecedence(w, "")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Create ~/.precedent/config.yaml populated with every option at its default value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}
		path := filepath.Join(home, ".precedent", "config.yaml")

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (remove it to regenerate)", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		out, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}

		var buf bytes.Buffer
		buf.WriteString("# Precedent configuration\n#\n")
		writePrecedence(&buf, "# ")
		buf.WriteString("\n")
		buf.Write(out)
		buf.WriteString("\n# Keep API keys in the environment or ~/.precedent/.env:\n")
		for _, key := range []string{"OPENAI_API_KEY=sk-...", "ANTHROPIC_API_KEY=sk-ant-...", "GOOGLE_FACTCHECK_API_KEY=...", "OLLAMA_BASE_URL=http://localhost:11434"} {
			fmt.Fprintf(&buf, "#   %s\n", key)
		}

		if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nedit it, then check the result with: precedent config show\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// redacted masks secrets so the config can be printed
func redacted(cfg model.Config) model.Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		if len(s) <= 8 {
			return "****"
		}
		return s[:4] + "****"
	}
	cfg.Embedding.APIKey = mask(cfg.Embedding.APIKey)
	cfg.FactCheck.APIKey = mask(cfg.FactCheck.APIKey)
	cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
	cfg.Cache.Redis.Password = mask(cfg.Cache.Redis.Password)
	return cfg
}

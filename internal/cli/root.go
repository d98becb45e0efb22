package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/logger"
	"github.com/ppiankov/precedent/internal/model"
)

const version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// replacer maps nested keys such as retrieval.top_k to PRECEDENT_RETRIEVAL_TOP_K
var replacer = strings.NewReplacer(".", "_")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "precedent",
	Short: "Precedent - find prior fact-checks of a claim and measure how far they agree",
	Long: `Precedent looks up prior fact-checks of a claim in a local vector-indexed
archive and in an external fact-check search API, merges the results and
scores how closely the publishers agree.

It does not decide whether a claim is true. It shows what has already been
said about it, by whom, and how consistently.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("precedent " + version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.precedent/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig layers defaults, the config file and PRECEDENT_* env vars
func initConfig() {
	loadDotEnv()
	registerDefaults("", reflect.ValueOf(*model.DefaultConfig()))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".precedent"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("PRECEDENT")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadDotEnv loads API keys and PRECEDENT_* overrides from the first .env
// file found. Variables already set in the environment win.
func loadDotEnv() {
	candidates := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".precedent", ".env"))
	}
	for _, f := range candidates {
		if err := godotenv.Load(f); err == nil {
			if verbose {
				fmt.Fprintf(os.Stderr, "Loaded environment from %s\n", f)
			}
			return
		}
	}
}

// registerDefaults makes every config key known to viper so env vars can
// override keys the config file leaves out.
func registerDefaults(prefix string, v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		field := v.Field(i)
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			registerDefaults(key, field)
			continue
		}
		viper.SetDefault(key, field.Interface())
	}
}

// loadConfig returns the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyKeyEnv(cfg)
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// applyKeyEnv fills API keys from the provider-specific environment variables
func applyKeyEnv(cfg *model.Config) {
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.FactCheck.APIKey == "" {
		cfg.FactCheck.APIKey = os.Getenv("GOOGLE_FACTCHECK_API_KEY")
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

func newLogger(cfg *model.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

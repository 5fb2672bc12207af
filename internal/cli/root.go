// Package cli implements the sepcheck command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/util"
)

// Version is set at build time with -ldflags.
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	logFormat string
	asOfFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "sepcheck",
	Short: "sepcheck - Medicare Special Enrollment Period screening",
	Long: `sepcheck reads a beneficiary's MARx and Medicaid screens, extracts the
record with an LLM, and reports which Special Enrollment Periods the
record supports.

Findings are leads for a licensed agent, not eligibility determinations.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sepcheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.sepcheck/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flags.StringVar(&asOfFlag, "as-of", "", "evaluation date YYYY-MM-DD (default: today)")
	flags.String("dataset", "", "disaster declaration dataset path")
	flags.String("provider", "", "LLM provider (openai, anthropic, ollama)")
	flags.String("model", "", "LLM model name")
	flags.Bool("no-cache", false, "disable the extraction cache")

	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("output.log_format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("reference.dataset_path", flags.Lookup("dataset"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("model"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in the config file and SEPCHECK_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".sepcheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SEPCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration: flags, then SEPCHECK_*
// environment, then the config file, then defaults.
func loadConfig(cmd *cobra.Command) (*model.Config, error) {
	v := viper.GetViper()
	if err := registerDefaults(v, model.DefaultConfig()); err != nil {
		return nil, err
	}

	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	applyProviderEnv(cfg)
	return cfg, nil
}

// registerDefaults makes every config key known to viper so that
// environment overrides apply on Unmarshal.
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)
	v.SetDefault("llm.api_key", "")
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if sub, ok := value.(map[string]any); ok {
			setDefaults(v, prefix+key+".", sub)
			continue
		}
		v.SetDefault(prefix+key, value)
	}
}

// applyProviderEnv fills credentials from the providers' conventional
// environment variables when the config does not set them. The default model
// is an OpenAI model, so other providers fall back to their own default.
func applyProviderEnv(cfg *model.Config) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.LLM.Model == model.DefaultConfig().LLM.Model {
			cfg.LLM.Model = ""
		}
	case "ollama":
		if base := os.Getenv("OLLAMA_BASE_URL"); base != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = base
		}
		if cfg.LLM.Model == model.DefaultConfig().LLM.Model {
			cfg.LLM.Model = ""
		}
	}
}

func newLogger(cfg *model.Config) *slog.Logger {
	return util.NewLogger(os.Stderr, cfg.Output.LogFormat, cfg.Output.Verbose)
}

// parseAsOf reads the --as-of flag. Empty means today.
func parseAsOf(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DatasetDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fillahole",
	Short: "Fill-A-Hole - civic issue admission and geofenced notification",
	Long: `Fill-A-Hole accepts geotagged civic issue reports (potholes, garbage,
broken infrastructure), decides whether each report is trustworthy enough
to be shown publicly, and notifies nearby users about the ones that are.

Trust is computed from photo metadata (GPS fix, accuracy, freshness,
editing software, location match) with an optional AI authenticity
cross-check. Flagged reports stay visible to their author only.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Fill-A-Hole.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fillahole %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.fillahole/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// secretEnv lists config keys that may also come from conventional
// unprefixed variables, usually kept in a .env file
var secretEnv = map[string][]string{
	"advisor.api_key":  {"FILLAHOLE_ADVISOR_API_KEY", "OPENAI_API_KEY"},
	"advisor.base_url": {"FILLAHOLE_ADVISOR_BASE_URL", "OLLAMA_BASE_URL"},
	"auth.jwt_secret":  {"FILLAHOLE_AUTH_JWT_SECRET", "JWT_SECRET"},
	"push.api_key":     {"FILLAHOLE_PUSH_API_KEY", "PUSH_API_KEY"},
	"push.endpoint":    {"FILLAHOLE_PUSH_ENDPOINT", "PUSH_ENDPOINT"},
	"http.http_proxy":  {"FILLAHOLE_HTTP_HTTP_PROXY", "HTTP_PROXY", "http_proxy"},
	"http.https_proxy": {"FILLAHOLE_HTTP_HTTPS_PROXY", "HTTPS_PROXY", "https_proxy"},
	"http.no_proxy":    {"FILLAHOLE_HTTP_NO_PROXY", "NO_PROXY", "no_proxy"},
	"database.dsn":     {"FILLAHOLE_DATABASE_DSN", "DATABASE_URL"},
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// .env is optional; existing variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}

	if err := setupViper(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		return
	}
	if verbose && viper.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setupViper layers defaults, the config file and FILLAHOLE_* variables
func setupViper(v *viper.Viper, file string) error {
	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.MergeConfig(bytes.NewReader(defaults)); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}

	v.SetEnvPrefix("FILLAHOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range secretEnv {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".fillahole"))
		v.SetConfigName("config")
	}

	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// loadConfig decodes the layered configuration
func loadConfig() (*model.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger; --verbose forces debug
func newLogger(config model.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(config.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

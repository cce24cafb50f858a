package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/engine"
	"github.com/spigell/skill-matcher/internal/extraction"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/matching"
	"github.com/spigell/skill-matcher/internal/percolation"
)

const (
	app       = "skill-matcher"
	envPrefix = "SKILL_MATCHER"
)

type Config struct {
	Index      *IndexConfig      `mapstructure:"index"`
	Matching   *MatchingConfig   `mapstructure:"matching"`
	Aptitudes  *AptitudesConfig  `mapstructure:"aptitudes"`
	Extraction *ExtractionConfig `mapstructure:"extraction"`
	Server     *ServerConfig     `mapstructure:"server"`
}

type IndexConfig struct {
	URL                   string        `mapstructure:"url"`
	Username              string        `mapstructure:"username"`
	Password              string        `mapstructure:"password" json:"-"`
	PasswordFile          string        `mapstructure:"password-file"`
	Timeout               time.Duration `mapstructure:"timeout"`
	Prefix                string        `mapstructure:"prefix"`
	PercolationSuffix     string        `mapstructure:"percolation-suffix"`
	MaxHits               int           `mapstructure:"max-hits"`
	MaxPercolationMatches int           `mapstructure:"max-percolation-matches"`
	Rescale               bool          `mapstructure:"rescale"`
}

type MatchingConfig struct {
	ThresholdScore float64 `mapstructure:"threshold-score"`
}

type AptitudesConfig struct {
	DatabaseURL     string `mapstructure:"database-url" json:"-"`
	DatabaseURLFile string `mapstructure:"database-url-file"`
}

type ExtractionConfig struct {
	TikaURL     string `mapstructure:"tika-url"`
	MaxFileSize int64  `mapstructure:"max-file-size"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	LegacyJSON   bool          `mapstructure:"legacy-json"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:               app,
		Short:             "skill-matcher matches rated skills to occupations and extracts skills from CVs",
		SilenceUsage:      true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return initConfig() },
	}
)

// Execute executes the root command.
func Execute() error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skill-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	defaults := engine.DefaultConfig()

	v.SetDefault("index.url", "http://localhost:9200")
	v.SetDefault("index.username", "")
	v.SetDefault("index.password", "")
	v.SetDefault("index.password-file", "")
	v.SetDefault("index.timeout", 10*time.Second)
	v.SetDefault("index.prefix", "")
	v.SetDefault("index.percolation-suffix", defaults.PercolationIndexSuffix)
	v.SetDefault("index.max-hits", 500)
	v.SetDefault("index.max-percolation-matches", percolation.DefaultMaxMatches)
	v.SetDefault("index.rescale", false)
	v.SetDefault("matching.threshold-score", matching.DefaultThresholdScore)
	v.SetDefault("aptitudes.database-url", "")
	v.SetDefault("aptitudes.database-url-file", "")
	v.SetDefault("extraction.tika-url", "http://localhost:9998")
	v.SetDefault("extraction.max-file-size", extraction.DefaultMaxFileSize)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read-timeout", 30*time.Second)
	v.SetDefault("server.write-timeout", 60*time.Second)
	v.SetDefault("server.legacy-json", false)
}

func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The config file is optional unless given explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	return nil
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config == nil || config.Index == nil || config.Matching == nil ||
		config.Aptitudes == nil || config.Extraction == nil || config.Server == nil {
		return nil, errors.New("config is incomplete")
	}

	return config, nil
}

func newLogger() (*zap.Logger, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}
	return log, nil
}

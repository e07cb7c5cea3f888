package cmd

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "recruiter"
	envPrefix = "RECRUITER"
)

type Config struct {
	APIURL      string        `mapstructure:"api-url"`
	UserAgent   string        `mapstructure:"user-agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SessionFile string        `mapstructure:"session-file"`
	Ephemeral   bool          `mapstructure:"ephemeral"`
	JobsFile    string        `mapstructure:"jobs-file"`
	RefreshLead time.Duration `mapstructure:"refresh-lead"`
	Log         *LogConfig    `mapstructure:"log"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "recruiter is a cli for the hiring backend: sessions, hiring analyses and the résumé assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is recruiter.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("api-url", "", "backend API base URL")
	rootCmd.PersistentFlags().String("session-file", "", "where the session is persisted (default is in the user config dir)")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "keep the session in memory only")
	rootCmd.PersistentFlags().String("log-file", "", "also write JSON logs to this rotated file")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("session-file", rootCmd.PersistentFlags().Lookup("session-file"))
	viper.BindPFlag("ephemeral", rootCmd.PersistentFlags().Lookup("ephemeral"))
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	// Keys without a flag need a default so Unmarshal sees their env variables.
	v.SetDefault("user-agent", "")
	v.SetDefault("jobs-file", "")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("refresh-lead", 5*time.Minute)
	v.SetDefault("log.max-size-mb", 10)
	v.SetDefault("log.max-backups", 3)
	v.SetDefault("log.max-age-days", 28)
}

func initConfig() {
	// .env is optional, real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	configureEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional unless set explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// configureEnv maps keys like log.max-size-mb to RECRUITER_LOG_MAX_SIZE_MB.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

func getConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Log == nil {
		config.Log = &LogConfig{}
	}

	return config, nil
}

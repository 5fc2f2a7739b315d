// Package cmd implements the CLI commands for relaymux.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ethpandaops/relaymux/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logrus.Logger
	v       *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "relaymux",
	Short: "MEV-Boost style relay multiplexer",
	Long: `relaymux fans a validator's get-header and submit-blinded-block
requests out across multiple configured block-building relays, and
returns the most valuable valid response from each round.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger()

		if err := initConfig(); err != nil {
			return err
		}

		return nil
	},
}

func init() {
	v = viper.New()
	cobra.OnInitialize(loadConfigFile)

	defaults := config.DefaultConfig()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("host", defaults.Host, "address to bind the Builder-API server to")
	rootCmd.PersistentFlags().Int("port", defaults.Port, "port to bind the Builder-API server to")
	rootCmd.PersistentFlags().StringSlice("relay", nil, "relay URL, may be repeated (the path or userinfo must encode the relay's BLS pubkey)")
	rootCmd.PersistentFlags().String("network", defaults.Network, "network: mainnet, holesky, sepolia")
	rootCmd.PersistentFlags().String("log-level", defaults.LogLevel, "log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().String("metrics-addr", defaults.MetricsAddr, "address to serve Prometheus metrics on")

	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		logger.WithError(err).Fatal("failed to bind flags")
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	levelStr := v.GetString("log-level")

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
}

func loadConfigFile() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("relaymux")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.relaymux")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if logger != nil {
				logger.WithError(err).Warn("error reading config file")
			}
		}
	}
}

func initConfig() error {
	loader := config.NewLoader(logger)

	flagCfg, err := loader.LoadConfigFromFlags(v)
	if err != nil {
		return err
	}

	cfg = flagCfg

	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	return nil
}

// GetConfig returns the current configuration.
func GetConfig() *config.Config {
	return cfg
}

// GetLogger returns the application logger.
func GetLogger() *logrus.Logger {
	return logger
}

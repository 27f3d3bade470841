// Package cmd implements the command-line interface for cafecrawl.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/cafecrawl/cmd/harvest"
	"github.com/jonesrussell/cafecrawl/cmd/httpd"
	cmdscheduler "github.com/jonesrussell/cafecrawl/cmd/scheduler"
	cmdsources "github.com/jonesrussell/cafecrawl/cmd/sources"
	"github.com/jonesrussell/cafecrawl/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug logging for all commands.
	Debug bool

	// rootCmd represents the root command for the cafecrawl CLI.
	rootCmd = &cobra.Command{
		Use:   "cafecrawl",
		Short: "An authenticated forum content harvester",
		Long: `cafecrawl logs into membership forums, extracts new posts from their
boards, and persists anything not yet seen for downstream consumers.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper
	_ = godotenv.Load()

	// Parse flags early to get config path and debug flag before init
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("cafecrawl version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(harvest.Command())
	rootCmd.AddCommand(cmdsources.Command())
	rootCmd.AddCommand(httpd.Command())
	rootCmd.AddCommand(cmdscheduler.Command())
}

// initConfig reads the config file and environment variables into viper.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Environment variables resolve through the key replacer, so
	// database.host answers to DATABASE_HOST.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(config.EnvPrefixReplacer())

	config.SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults and environment cover the rest.
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v\n", err)
	}

	if Debug {
		viper.Set("logger.level", "debug")
		viper.Set("logger.development", true)
	}

	return nil
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/alertroute/pkg/client"
)

var (
	cfgFile      string
	outputFormat string
	serverURL    string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alertroute",
		Short: "alertroute CLI - notification filter and routing tools",
		Long: `alertroute CLI checks filter documents, timeslots and fallback settings
offline, and talks to a running alertroute server to resolve or send
incident events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.alertroute/config.yaml)")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")

	_ = viper.BindPFlag("output", cmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("server_url", cmd.PersistentFlags().Lookup("server"))

	// Offline commands
	cmd.AddCommand(newCheckFallbackCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newCoversCmd())
	cmd.AddCommand(newNormalizeCmd())

	// Server commands
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newEventCmd())

	return cmd
}

func Execute() error {
	return newRootCmd().Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".alertroute"), nil
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ALERTROUTE")
	viper.AutomaticEnv()

	viper.SetDefault("server_url", "http://localhost:8080")
	viper.SetDefault("output", "table")
	viper.SetDefault("time_zone", "Local")

	_ = viper.ReadInConfig()
}

func newClient() *client.Client {
	url := viper.GetString("server_url")
	if serverURL != "" {
		url = serverURL
	}
	return client.NewClient(client.Config{BaseURL: url})
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}

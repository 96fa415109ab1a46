package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configKeys are the settings the CLI reads, each with its value check
var configKeys = map[string]func(string) error{
	"server_url": func(v string) error {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("server_url must be an http or https URL")
		}
		return nil
	},
	"output": func(v string) error {
		switch v {
		case "table", "json", "yaml":
			return nil
		}
		return fmt.Errorf("output must be one of table, json, yaml")
	},
	"time_zone": func(v string) error {
		if _, err := time.LoadLocation(v); err != nil {
			return fmt.Errorf("unknown time zone %q", v)
		}
		return nil
	},
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a configuration value",
		Args:      cobra.ExactArgs(2),
		ValidArgs: knownKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			check, ok := configKeys[key]
			if !ok {
				return fmt.Errorf("unknown config key %q (known: %v)", key, knownKeys())
			}
			if err := check(value); err != nil {
				return err
			}

			viper.Set(key, value)
			path, err := writeConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+] %s = %s (%s)\n", key, value, path)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !viper.IsSet(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: (not set)\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", args[0], viper.Get(args[0]))
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the effective CLI settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range knownKeys() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", key, viper.Get(key))
			}
			return nil
		},
	}
}

func knownKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for key := range configKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// writeConfig saves the settings to --config, or to the default file
func writeConfig() (string, error) {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	output  string = "text" // "text" or "json"
	api     *Client
)

var rootCmd = &cobra.Command{
	Use:   "localhub",
	Short: "localhub CLI - read and manage your notifications",
	Long: `localhub CLI provides command-line access to your community inbox.
The community is chosen by the API URL, the same way browsers pick it by host.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		api = NewClient(
			viper.GetString("api.base_url"),
			viper.GetString("auth.token"),
			viper.GetDuration("api.timeout"),
		)
		if viper.GetString("auth.token") == "" && cmd.Name() != "login" && cmd.Name() != "help" && cmd.Parent() != nil {
			return fmt.Errorf("not logged in: run `localhub login` or set LOCALHUB_AUTH_TOKEN")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.config/localhub/cli.toml)")
	rootCmd.PersistentFlags().String("api", "", "API server URL")
	rootCmd.PersistentFlags().String("token", "", "Session token")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("auth.token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(notificationsCmd)
}

// initConfig layers flags over LOCALHUB_* environment variables over the
// config file over defaults
func initConfig() error {
	viper.SetDefault("api.base_url", "http://localhost:8787")
	viper.SetDefault("api.timeout", 30*time.Second)

	viper.SetEnvPrefix("localhub")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigType("toml")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return err
		}
		viper.SetConfigFile(filepath.Join(dir, "cli.toml"))
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// saveToken stores the session token in the config file
func saveToken(token string) error {
	viper.Set("auth.token", token)
	path := viper.ConfigFileUsed()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return viper.WriteConfigAs(path)
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "localhub"), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

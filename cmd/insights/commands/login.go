package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the Insights API",
		Long:  "Store the API endpoint and token in the CLI configuration file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if endpoint == "" {
				endpoint = viper.GetString("api")
			}

			if endpoint == "" {
				return ErrAPIEndpointRequired
			}

			fmt.Print("Token: ")

			byteToken, err := term.ReadPassword(int(syscall.Stdin))

			fmt.Println()

			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}

			token := strings.TrimSpace(string(byteToken))
			if token == "" {
				return ErrNotAuthenticated
			}

			viper.Set("api", endpoint)
			viper.Set("token", token)

			if err := persistConfig(); err != nil {
				return err
			}

			fmt.Println("Logged in to", endpoint)

			return nil
		},
	}

	cmd.Flags().StringVarP(&endpoint, "api", "a", "", "API endpoint URL")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("token", "")

			if err := persistConfig(); err != nil {
				return err
			}

			fmt.Println("Logged out")

			return nil
		},
	}
}

func persistConfig() error {
	path := viper.ConfigFileUsed()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}

		path = filepath.Join(home, ".insights", "config.yml")
	}

	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(newCacheClearCommand())
	cmd.AddCommand(newCacheInvalidateCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.ClearAll(cmd.Context()); err != nil {
				return err
			}

			fmt.Println("Cache cleared")

			return nil
		},
	}
}

func newCacheInvalidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate PREFIX",
		Short: "Remove cached responses under a path prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.Invalidate(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Println("Invalidated", args[0])

			return nil
		},
	}
}

package commands

import (
	"fmt"
	"net/url"
	"os"

	"github.com/introspect-io/insights-client/pkg/insights"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewRelationshipsCommand creates the relationships command group.
func NewRelationshipsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relationships",
		Aliases: []string{"relationship", "rel"},
		Short:   "Manage relationships between insights",
	}

	cmd.AddCommand(newRelationshipsListCommand())
	cmd.AddCommand(newRelationshipsCreateCommand())
	cmd.AddCommand(newRelationshipsDeleteCommand())

	return cmd
}

func newRelationshipsListCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List relationships",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			query := url.Values{}
			if source != "" {
				query.Set("source_id", source)
			}

			list, err := client.Relationships().List(cmd.Context(), query)
			if err != nil {
				return err
			}

			handled, err := renderStructured(list)
			if handled {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("ID", "Source", "Target", "Kind")

			for _, relationship := range list.Resources {
				_ = table.Append(
					relationship.ID,
					relationship.SourceID,
					relationship.TargetID,
					relationship.Kind,
				)
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "filter by source insight ID")

	return cmd
}

func newRelationshipsCreateCommand() *cobra.Command {
	var (
		source string
		target string
		kind   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a relationship",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			request := &insights.RelationshipCreateRequest{
				SourceID: source,
				TargetID: target,
				Kind:     kind,
			}

			relationship, err := client.Relationships().Create(cmd.Context(), request)
			if err != nil {
				return err
			}

			fmt.Println("Created relationship", relationship.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source insight ID")
	cmd.Flags().StringVar(&target, "target", "", "target insight ID")
	cmd.Flags().StringVar(&kind, "kind", "", "relationship kind")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func newRelationshipsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.Relationships().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Println("Deleted relationship", args[0])

			return nil
		},
	}
}

package commands

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/introspect-io/insights-client/pkg/insights"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewInsightsCommand creates the insights command group.
func NewInsightsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "insights",
		Aliases: []string{"insight", "i"},
		Short:   "Manage insight notes",
	}

	cmd.AddCommand(newInsightsListCommand())
	cmd.AddCommand(newInsightsGetCommand())
	cmd.AddCommand(newInsightsCreateCommand())
	cmd.AddCommand(newInsightsDeleteCommand())

	return cmd
}

func newInsightsListCommand() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List insights",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			query := url.Values{}
			if tag != "" {
				query.Set("tag", tag)
			}

			list, err := client.Insights().List(cmd.Context(), query)
			if err != nil {
				return err
			}

			handled, err := renderStructured(list)
			if handled {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("ID", "Title", "Tags", "Updated")

			for _, insight := range list.Resources {
				_ = table.Append(
					insight.ID,
					insight.Title,
					strings.Join(insight.Tags, ", "),
					insight.UpdatedAt.Format("2006-01-02 15:04"),
				)
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "filter by tag")

	return cmd
}

func newInsightsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a single insight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			insight, err := client.Insights().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			handled, err := renderStructured(insight)
			if handled {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Property", "Value")
			_ = table.Append("ID", insight.ID)
			_ = table.Append("Title", insight.Title)
			_ = table.Append("Body", insight.Body)
			_ = table.Append("Tags", strings.Join(insight.Tags, ", "))
			_ = table.Append("Created", insight.CreatedAt.Format("2006-01-02 15:04"))
			_ = table.Append("Updated", insight.UpdatedAt.Format("2006-01-02 15:04"))

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}

func newInsightsCreateCommand() *cobra.Command {
	var (
		title string
		body  string
		tags  []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an insight",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			request := &insights.InsightCreateRequest{
				Title: title,
				Body:  body,
				Tags:  tags,
			}

			insight, err := client.Insights().Create(cmd.Context(), request)
			if err != nil {
				return err
			}

			fmt.Println("Created insight", insight.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "insight title")
	cmd.Flags().StringVar(&body, "body", "", "insight body")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newInsightsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an insight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.Insights().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Println("Deleted insight", args[0])

			return nil
		},
	}
}

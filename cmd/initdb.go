package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhcgn/arxiv2notion/config"
	"github.com/dhcgn/arxiv2notion/notion"
)

// NewInitDBCommand returns the "init-db" command which creates the target
// database under an existing page.
func NewInitDBCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "init-db",
		Short: "Create a Notion database with the paper schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.NotionToken == "" {
				return config.ErrMissingNotionAuth
			}
			pageID, err := cmd.Flags().GetString("page-id")
			if err != nil {
				return err
			}
			title, err := cmd.Flags().GetString("title")
			if err != nil {
				return err
			}

			client, err := notion.NewClient(cfg.NotionToken)
			if err != nil {
				return err
			}
			id, err := notion.CreateDatabase(cmd.Context(), client.Database, pageID, title)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Notion database created: %s\n", id)
			fmt.Fprintf(cmd.OutOrStdout(), "Set NOTION_DATABASE_ID=%s\n", id)
			return nil
		},
	}

	c.Flags().String("page-id", "", "Parent Notion page for the new database")
	c.Flags().String("title", notion.DefaultDatabaseTitle, "Database title")
	_ = c.MarkFlagRequired("page-id")
	return c
}

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vegasq/prefcat/cache"
)

var errNoCacheDir = errors.New("missing cache directory (use --cache-dir)")

func newCacheCmd() *cobra.Command {
	var dir string
	open := func() (*cache.Cache, error) {
		if dir == "" {
			return nil, errNoCacheDir
		}
		return cache.Open(dir)
	}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "inspect or clear cached tables",
	}
	cmd.PersistentFlags().StringVar(&dir, "cache-dir", "", "cache directory")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list cached tables, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()

			entries, err := c.List()
			if err != nil {
				return err
			}
			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"id", "created", "mode", "title", "files", "ballots"})
			tw.SetAutoFormatHeaders(false)
			for _, e := range entries {
				tw.Append([]string{
					e.ID.String(),
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.Mode,
					e.Query.Title,
					strconv.Itoa(len(e.Files)),
					strconv.FormatInt(e.Table.Total, 10),
				})
			}
			tw.SetCaption(true, fmt.Sprintf("%d cached tables", len(entries)))
			tw.Render()
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "remove every cached table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Clear()
		},
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

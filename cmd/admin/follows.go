package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var followsCmd = &cobra.Command{
	Use:     "follows",
	Aliases: []string{"follow"},
	Short:   "Browse follow edges",
}

var followsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List follows, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		follows, err := admin.follows.ListFollows(cmd.Context(), limit, offset)
		if err != nil {
			return err
		}
		w := table(cmd)
		fmt.Fprintln(w, "ID\tUSER\tAUTHOR\tSINCE")
		for _, f := range follows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				f.ID, f.User.Username, f.Author.Username, f.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

func init() {
	followsListCmd.Flags().Int("limit", 50, "maximum rows")
	followsListCmd.Flags().Int("offset", 0, "rows to skip")

	followsCmd.AddCommand(followsListCmd)
	rootCmd.AddCommand(followsCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var commentsCmd = &cobra.Command{
	Use:     "comments",
	Aliases: []string{"comment"},
	Short:   "Browse comments",
}

var commentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List comments, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		comments, err := admin.comments.SearchComments(cmd.Context(), search, limit, offset)
		if err != nil {
			return err
		}
		w := table(cmd)
		fmt.Fprintln(w, "ID\tPOST\tAUTHOR\tCREATED\tTEXT")
		for _, c := range comments {
			text := strings.ReplaceAll(c.Text, "\n", " ")
			if r := []rune(text); len(r) > 40 {
				text = string(r[:40])
			}
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
				c.ID, c.PostID, c.Author.Username, c.CreatedAt.Format("2006-01-02 15:04"), text)
		}
		return w.Flush()
	},
}

func init() {
	commentsListCmd.Flags().String("search", "", "case-insensitive text filter")
	commentsListCmd.Flags().Int("limit", 50, "maximum rows")
	commentsListCmd.Flags().Int("offset", 0, "rows to skip")

	commentsCmd.AddCommand(commentsListCmd)
	rootCmd.AddCommand(commentsCmd)
}

package main

import (
	"fmt"
	"strconv"

	"yatube/internal/repository"

	"github.com/spf13/cobra"
)

var postsCmd = &cobra.Command{
	Use:     "posts",
	Aliases: []string{"post"},
	Short:   "List and delete posts",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		search, _ := cmd.Flags().GetString("search")
		slug, _ := cmd.Flags().GetString("group")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := repository.PostFilter{Search: search}
		if slug != "" {
			g, err := admin.groups.GetGroup(ctx, slug)
			if err != nil {
				return err
			}
			filter.GroupID = g.ID
		}

		posts, err := admin.posts.ListPosts(ctx, filter, limit, offset)
		if err != nil {
			return err
		}
		w := table(cmd)
		fmt.Fprintln(w, "ID\tPUBLISHED\tAUTHOR\tGROUP\tTEXT")
		for _, p := range posts {
			group := "-"
			if p.Group != nil {
				group = p.Group.Slug
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				p.ID, p.CreatedAt.Format("2006-01-02 15:04"), p.Author.Username, group, p.Excerpt(40))
		}
		return w.Flush()
	},
}

var postsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a post with its comments and image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid post id %q", args[0])
		}
		if err := admin.posts.DeletePost(cmd.Context(), uint(id)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted post %d\n", id)
		return nil
	},
}

func init() {
	postsListCmd.Flags().String("search", "", "case-insensitive text filter")
	postsListCmd.Flags().String("group", "", "only posts in this group slug")
	postsListCmd.Flags().Int("limit", 50, "maximum rows")
	postsListCmd.Flags().Int("offset", 0, "rows to skip")

	postsCmd.AddCommand(postsListCmd, postsDeleteCmd)
	rootCmd.AddCommand(postsCmd)
}

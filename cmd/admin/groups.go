package main

import (
	"errors"
	"fmt"

	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/spf13/cobra"
)

var groupsCmd = &cobra.Command{
	Use:     "groups",
	Aliases: []string{"group"},
	Short:   "List, create, update and delete groups",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups, optionally filtered by title",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		search, _ := cmd.Flags().GetString("search")
		groups, err := admin.groups.ListGroups(cmd.Context(), search)
		if err != nil {
			return err
		}
		w := table(cmd)
		fmt.Fprintln(w, "ID\tSLUG\tTITLE")
		for _, g := range groups {
			fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
		}
		return w.Flush()
	},
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create <slug>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := groupInput(cmd, args[0])
		g, err := admin.groups.CreateGroup(cmd.Context(), in)
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created group %d (%s)\n", g.ID, g.Slug)
		return nil
	},
}

var groupsUpdateCmd = &cobra.Command{
	Use:   "update <slug>",
	Short: "Update a group; unset flags keep their current value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := admin.groups.GetGroup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		in := service.GroupInput{Title: current.Title, Slug: current.Slug, Description: current.Description}
		if cmd.Flags().Changed("title") {
			in.Title, _ = cmd.Flags().GetString("title")
		}
		if cmd.Flags().Changed("description") {
			in.Description, _ = cmd.Flags().GetString("description")
		}
		if cmd.Flags().Changed("slug") {
			in.Slug, _ = cmd.Flags().GetString("slug")
		}
		g, err := admin.groups.UpdateGroup(cmd.Context(), args[0], in)
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated group %d (%s)\n", g.ID, g.Slug)
		return nil
	},
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a group; its posts are kept without a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := admin.groups.DeleteGroup(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted group %s\n", args[0])
		return nil
	},
}

func groupInput(cmd *cobra.Command, slug string) service.GroupInput {
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	return service.GroupInput{Title: title, Slug: slug, Description: description}
}

// describe expands form errors into a readable message.
func describe(err error) error {
	fields := models.FieldsOf(err)
	if len(fields) == 0 {
		return err
	}
	msg := "invalid input:"
	for name, msgs := range fields {
		for _, m := range msgs {
			msg += fmt.Sprintf(" %s: %s", name, m)
		}
	}
	return errors.New(msg)
}

func init() {
	groupsListCmd.Flags().String("search", "", "case-insensitive title filter")
	groupsCreateCmd.Flags().String("title", "", "group title (required)")
	groupsCreateCmd.Flags().String("description", "", "group description")
	_ = groupsCreateCmd.MarkFlagRequired("title")
	groupsUpdateCmd.Flags().String("title", "", "new title")
	groupsUpdateCmd.Flags().String("description", "", "new description")
	groupsUpdateCmd.Flags().String("slug", "", "new slug")

	groupsCmd.AddCommand(groupsListCmd, groupsCreateCmd, groupsUpdateCmd, groupsDeleteCmd)
	rootCmd.AddCommand(groupsCmd)
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/mergestat/timediff"
	"github.com/spf13/cobra"
	"github.com/zippdf/zippdf/internal/bot"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage authorized users",
	Long:  `Add, remove and list the Telegram users that may convert archives.`,
}

var usersAddCmd = &cobra.Command{
	Use:     "add <user-id>...",
	Short:   "Authorize users",
	Example: `zippdf users add 1234567890 2345678901`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, _, err := bot.ParseUserIDs(strings.Join(args, " "))
		if err != nil {
			return err
		}
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		for _, id := range ids {
			if err := db.AddAuthorizedUser(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to add user %d: %w", id, err)
			}
		}
		fmt.Printf("Added %d user(s)\n", len(ids))
		return nil
	},
}

var usersRemoveCmd = &cobra.Command{
	Use:     "remove <user-id>...",
	Aliases: []string{"rm"},
	Short:   "Revoke authorization",
	Example: `zippdf users remove 1234567890`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, _, err := bot.ParseUserIDs(strings.Join(args, " "))
		if err != nil {
			return err
		}
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		for _, id := range ids {
			if err := db.RemoveAuthorizedUser(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to remove user %d: %w", id, err)
			}
		}
		fmt.Printf("Removed %d user(s)\n", len(ids))
		return nil
	},
}

var usersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List authorized users",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		users, err := db.GetAuthorizedUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		if len(users) == 0 {
			fmt.Println("No authorized users")
			return nil
		}
		for _, u := range users {
			fmt.Printf("%d\tadded %s\n", u.UserID, timediff.TimeDiff(u.AddedAt))
		}
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersAddCmd, usersRemoveCmd, usersListCmd)
	rootCmd.AddCommand(usersCmd)
}

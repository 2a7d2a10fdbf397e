package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	notifPage     int
	notifPageSize int
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			var err error
			password, err = promptPassword(os.Stdin, os.Stderr, "Password: ")
			if err != nil {
				return err
			}
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}
		token, err := api.Login(email, password)
		if err != nil {
			return err
		}
		if err := saveToken(token); err != nil {
			return fmt.Errorf("logged in but could not save token: %w", err)
		}
		printSuccess("Logged in as %s", email)
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"n"},
	Short:   "Notification commands",
	Long:    "View and manage notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, unread first",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := api.Notifications(notifPage, notifPageSize)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(os.Stdout, page)
		}
		printInbox(os.Stdout, page)
		return nil
	},
}

var notificationsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Show unread notification count",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := api.UnreadCount()
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(os.Stdout, map[string]int64{"unread": count})
		}
		fmt.Printf("%d unread\n", count)
		return nil
	},
}

var notificationsMarkReadCmd = &cobra.Command{
	Use:   "mark-read [notification-id]",
	Short: "Mark one notification, or all of them, as read",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			marked, err := api.MarkAllRead()
			if err != nil {
				return err
			}
			printSuccess("Marked %d notifications as read", marked)
			return nil
		}
		if err := api.MarkRead(args[0]); err != nil {
			return err
		}
		printSuccess("Marked as read")
		return nil
	},
}

var notificationsDeleteCmd = &cobra.Command{
	Use:   "delete [notification-id]",
	Short: "Delete one notification, or all of them with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		switch {
		case len(args) == 1:
			if err := api.Delete(args[0]); err != nil {
				return err
			}
			printSuccess("Deleted")
		case all:
			deleted, err := api.DeleteAll()
			if err != nil {
				return err
			}
			printSuccess("Deleted %d notifications", deleted)
		default:
			return fmt.Errorf("give a notification id or --all")
		}
		return nil
	},
}

var notificationsSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View or update notification preferences",
	Long: `Without flags, prints your preferences. --email replaces the verbs
you are emailed about; --push turns web push on or off.

Examples:
  localhub notifications settings --email mention,reply
  localhub notifications settings --push=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			prefs *Preferences
			err   error
		)
		emailChanged := cmd.Flags().Changed("email")
		pushChanged := cmd.Flags().Changed("push")
		if emailChanged || pushChanged {
			current, getErr := api.Preferences()
			if getErr != nil {
				return getErr
			}
			verbs := current.EmailVerbs
			if emailChanged {
				verbs, _ = cmd.Flags().GetStringSlice("email")
			}
			var push *bool
			if pushChanged {
				v, _ := cmd.Flags().GetBool("push")
				push = &v
			}
			prefs, err = api.UpdatePreferences(verbs, push)
		} else {
			prefs, err = api.Preferences()
		}
		if err != nil {
			return err
		}

		if output == "json" {
			return printJSON(os.Stdout, prefs)
		}
		bold.Println("Email")
		fmt.Printf("  %s\n", strings.Join(prefs.EmailVerbs, ", "))
		bold.Println("Web push")
		fmt.Printf("  %t\n", prefs.PushEnabled)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("email")

	notificationsListCmd.Flags().IntVarP(&notifPage, "page", "p", 1, "Page number")
	notificationsListCmd.Flags().IntVar(&notifPageSize, "page-size", 20, "Notifications per page")
	notificationsDeleteCmd.Flags().Bool("all", false, "Delete every notification")
	notificationsSettingsCmd.Flags().StringSlice("email", nil, "Verbs to email, comma separated")
	notificationsSettingsCmd.Flags().Bool("push", true, "Enable web push")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsCountCmd)
	notificationsCmd.AddCommand(notificationsMarkReadCmd)
	notificationsCmd.AddCommand(notificationsDeleteCmd)
	notificationsCmd.AddCommand(notificationsSettingsCmd)
}

// ABOUTME: CLI commands for the credential slot.
// ABOUTME: Provides login, logout, and whoami.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/circle/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Store a login token",
	Long:  "Decode and store the token issued by the Circle API.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	token := args[0]
	identity, err := session.DecodeIdentity(token)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if err := globalTokens.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Printf("Logged in as user %d\n", identity.UserID)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := globalSession.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	identity, err := globalSession.Identity()
	if err != nil {
		return err
	}
	user, err := globalClient.GetUser(cmd.Context(), identity.UserID)
	if err != nil {
		// the token alone still identifies the viewer
		fmt.Printf("User %d (profile unavailable: %v)\n", identity.UserID, err)
		return nil
	}
	fmt.Printf("%s (#%d) <%s>\n", user.Name, user.ID, user.Email)
	return nil
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/config"
)

// Variables to hold flag values
var (
	user string
	pass string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the surveillance backend",
	Long: `Exchanges a username and password for an access token and saves it
locally for future commands. Any command that is later rejected with 401
clears the saved token.

Example:
  cctv-cli login --api-url http://10.0.0.5:8000 --username admin --password admin123`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := config.Load()
		if pass == "" {
			pass = readPassword()
		}

		fmt.Printf("Authenticating against %s as user '%s'...\n", settings.APIURL, user)

		api := newAPIClient(settings)
		token, err := api.Login(context.Background(), user, pass)
		if err != nil {
			fail("Login failed", err)
		}

		store, file := loadSession()
		// Save the URL so subsequent commands know where the token is valid.
		file.Set(config.KeyAPIURL, settings.APIURL)
		file.Set(config.KeyUsername, user)
		if err := store.Set(token); err != nil {
			fmt.Printf("Failed to save session: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Login successful. Session saved.")
	},
}

// readPassword reads one line from stdin. Input is echoed.
func readPassword() string {
	fmt.Print("Password: ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&user, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&pass, "password", "p", "", "Password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("username")
}

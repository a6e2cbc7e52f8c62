package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := loadSession()
		if _, ok := store.Get(); !ok {
			fmt.Println("Not logged in.")
			return
		}
		if err := store.Clear(); err != nil {
			fmt.Printf("Failed to clear session: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Logged out.")
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

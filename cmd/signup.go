package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/config"
)

var (
	signupUser string
	signupPass string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a dashboard account",
	Long: `Registers a new user. Signing up does not log you in; run
'cctv-cli login' afterwards.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := config.Load()
		api := newAPIClient(settings)

		msg, err := api.Signup(context.Background(), signupUser, signupPass)
		if err != nil {
			fail("Signup failed", err)
		}
		fmt.Println(msg)
	},
}

func init() {
	rootCmd.AddCommand(signupCmd)

	signupCmd.Flags().StringVarP(&signupUser, "username", "u", "", "Username")
	signupCmd.Flags().StringVarP(&signupPass, "password", "p", "", "Password")
	_ = signupCmd.MarkFlagRequired("username")
	_ = signupCmd.MarkFlagRequired("password")
}

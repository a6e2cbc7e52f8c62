package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/auth"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/config"
)

type statusReport struct {
	APIURL    string     `json:"api_url"`
	Username  string     `json:"username,omitempty"`
	LoggedIn  bool       `json:"logged_in"`
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved session",
	Long: `Shows which backend the CLI talks to and whether a token is saved.
Expiry is read from the token locally; only the backend can say whether it
is still accepted.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := config.Load()
		store, _ := loadSession()

		report := statusReport{APIURL: settings.APIURL, Username: settings.Username}
		if token, ok := store.Get(); ok {
			report.LoggedIn = true
			info, err := auth.Inspect(token)
			switch {
			case err == nil:
				report.Subject = info.Subject
				if !info.ExpiresAt.IsZero() {
					exp := info.ExpiresAt
					report.ExpiresAt = &exp
				}
				report.Expired = info.Expired(time.Now())
			case errors.Is(err, auth.ErrOpaqueToken):
				// nothing to show
			default:
				fmt.Printf("Warning: could not decode token: %v\n", err)
			}
		}

		if jsonOutput {
			printJSON(report)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "API URL:\t%s\n", report.APIURL)
		if !report.LoggedIn {
			fmt.Fprintf(w, "Session:\tnot logged in\n")
			w.Flush()
			return
		}
		fmt.Fprintf(w, "Session:\tlogged in\n")
		if report.Subject != "" {
			fmt.Fprintf(w, "User:\t%s\n", report.Subject)
		} else if report.Username != "" {
			fmt.Fprintf(w, "User:\t%s\n", report.Username)
		}
		if report.ExpiresAt != nil {
			state := "valid for " + time.Until(*report.ExpiresAt).Round(time.Second).String()
			if report.Expired {
				state = "expired"
			}
			fmt.Fprintf(w, "Expires:\t%s (%s)\n", report.ExpiresAt.Local().Format("2006-01-02 15:04:05"), state)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

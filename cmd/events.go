package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/client"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/config"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/filter"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/poller"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

var eventFilter filter.Criteria

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Browse detected events",
	Long:  `List or watch events detected by the surveillance backend, optionally filtered by camera, type and date.`,
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch the event list once",
	Example: `  cctv-cli events list --camera cam1
  cctv-cli events list --type loitering --date 2024-01-01 --json`,
	Run: func(cmd *cobra.Command, args []string) {
		store, token := requireSession()
		api := newAPIClient(config.Load())

		events, err := api.FetchEvents(context.Background(), token)
		if err != nil {
			if client.IsUnauthorized(err) {
				if cerr := store.Clear(); cerr != nil {
					fmt.Printf("Warning: failed to clear session: %v\n", cerr)
				}
			}
			fail("Error fetching events", err)
		}

		visible := filter.Apply(events, eventFilter)

		if jsonOutput {
			printJSON(models.EventListResponse{Count: len(visible), Events: visible})
			return
		}

		if len(visible) == 0 {
			fmt.Println("No events found.")
			return
		}
		writeEventTable(os.Stdout, visible)
	},
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the event list and redraw on every update",
	Long: `Polls the backend at poll_interval (default 10s) until interrupted.
A failed poll keeps the previous list on screen. A 401 clears the saved
session and ends the watch.`,
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := requireSession()
		settings := config.Load()
		api := newAPIClient(settings)

		fetcher := client.NewBreakerFetcher(api, client.BreakerConfig{
			Name:                "events-api",
			ConsecutiveFailures: settings.BreakerFailures,
			OpenTimeout:         time.Minute,
		})

		sched := poller.New(store, fetcher, poller.Config{Interval: settings.PollInterval})
		var lastUpdate time.Time
		sched.OnUpdate(func(snap poller.Snapshot) {
			lastUpdate = renderWatch(os.Stdout, snap, lastUpdate)
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched.Attach()
		err := sched.Wait(ctx)
		sched.Close()

		if errors.Is(err, poller.ErrStopped) {
			fmt.Println("Session expired. Please run 'cctv-cli login' again.")
			os.Exit(1)
		}
	},
}

// renderWatch draws snap when it carries a new successful fetch, or reports
// a failed poll. It returns the UpdatedAt of the last drawn snapshot.
func renderWatch(w io.Writer, snap poller.Snapshot, last time.Time) time.Time {
	if snap.State == poller.StateFetching {
		return last
	}
	if snap.Err != nil && snap.UpdatedAt.Equal(last) {
		fmt.Fprintf(w, "Warning: poll failed (%s), showing previous events\n", describeError(snap.Err))
		return last
	}
	if snap.UpdatedAt.IsZero() || snap.UpdatedAt.Equal(last) {
		return last
	}

	visible := filter.Apply(snap.Events, eventFilter)
	if jsonOutput {
		_ = writeJSON(w, models.EventListResponse{Count: len(visible), Events: visible})
		return snap.UpdatedAt
	}

	fmt.Fprintf(w, "\nUpdated %s, %d of %d events\n", snap.UpdatedAt.Local().Format("15:04:05"), len(visible), len(snap.Events))
	writeEventTable(w, visible)
	return snap.UpdatedAt
}

func writeEventTable(out io.Writer, events []models.Event) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CAMERA\tTYPE\tCONFIDENCE\tSTART\tCLIP\tTX")
	fmt.Fprintln(w, "------\t----\t----------\t-----\t----\t--")

	for _, e := range events {
		start := e.StartTime
		// Parse back to local time for display
		if t, ok := e.StartedAt(); ok {
			start = t.Local().Format("2006-01-02 15:04:05")
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			orDash(e.CameraID),
			orDash(e.EventType),
			e.ConfidenceString(),
			orDash(start),
			orDash(e.ClipPath),
			e.TxStatus(),
		)
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsWatchCmd)

	for _, c := range []*cobra.Command{eventsListCmd, eventsWatchCmd} {
		c.Flags().StringVar(&eventFilter.Camera, "camera", "", "Camera ID contains (case-insensitive)")
		c.Flags().StringVar(&eventFilter.Type, "type", "", "Event type contains (case-insensitive)")
		c.Flags().StringVar(&eventFilter.Date, "date", "", "Start time prefix, e.g. 2024-01-01")
	}
}

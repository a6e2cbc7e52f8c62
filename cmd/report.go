package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/config"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/submit"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// Variables to hold flag values
var report models.EventReport

// Report Command
var eventsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Log an event detected elsewhere",
	Long: `Logs an event that a detector has already classified. The hash of the
encrypted clip is anchored on the ledger by the backend. When --hash is
omitted it is computed from --enc-path.`,
	Example: `  cctv-cli events report --camera cam1 --type fighting --confidence 0.91 \
    --clip clips/cam1.mp4 --enc-path clips/cam1.mp4.enc`,
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := loadSession()
		api := newAPIClient(config.Load())

		if report.StartTime == "" {
			report.StartTime = time.Now().Format("2006-01-02T15:04:05")
		}
		if report.EndTime == "" {
			report.EndTime = report.StartTime
		}
		if report.Hash == "" && report.EncPath != "" {
			digest, err := submit.DigestFile(report.EncPath)
			if err != nil {
				fail("Error hashing clip", err)
			}
			report.Hash = digest
		}

		fmt.Printf("Reporting %s on camera %s...\n", report.EventType, report.CameraID)

		res, err := submit.NewReporter(store, api).Report(context.Background(), report)
		if err != nil {
			fail("Report failed", err)
		}

		if jsonOutput {
			printJSON(res)
			return
		}
		fmt.Printf("Event logged (tx: %s)\n", res.TxHash)
	},
}

func init() {
	eventsCmd.AddCommand(eventsReportCmd)

	eventsReportCmd.Flags().StringVar(&report.CameraID, "camera", "", "Camera ID")
	eventsReportCmd.Flags().StringVar(&report.EventType, "type", "", "Event type, e.g. fighting")
	eventsReportCmd.Flags().Float64Var(&report.Confidence, "confidence", 0, "Detector confidence between 0 and 1")
	eventsReportCmd.Flags().StringVar(&report.StartTime, "start", "", "Start time (default now)")
	eventsReportCmd.Flags().StringVar(&report.EndTime, "end", "", "End time (default start)")
	eventsReportCmd.Flags().StringVar(&report.ClipPath, "clip", "", "Path of the clip on the backend")
	eventsReportCmd.Flags().StringVar(&report.EncPath, "enc-path", "", "Path of the encrypted clip")
	eventsReportCmd.Flags().StringVar(&report.Hash, "hash", "", "Hex SHA-256 of the encrypted clip")
	_ = eventsReportCmd.MarkFlagRequired("camera")
	_ = eventsReportCmd.MarkFlagRequired("type")
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/config"
)

var feedOutput string

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Access the live camera feed",
}

// Snapshot Command
var feedSnapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Short:   "Save one JPEG frame from the live feed",
	Example: `  cctv-cli feed snapshot --output frame.jpg`,
	Run: func(cmd *cobra.Command, args []string) {
		api := newAPIClient(config.Load())

		fmt.Println("Requesting frame from live feed...")

		imgData, err := api.LiveFrame(context.Background())
		if err != nil {
			fail("Error getting frame", err)
		}

		if err := os.WriteFile(feedOutput, imgData, 0644); err != nil {
			fmt.Printf("Error writing file: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Frame saved to %s (%d bytes)\n", feedOutput, len(imgData))
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.AddCommand(feedSnapshotCmd)

	feedSnapshotCmd.Flags().StringVar(&feedOutput, "output", "snapshot.jpg", "Output filename")
}

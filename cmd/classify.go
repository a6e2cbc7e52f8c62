package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/config"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/submit"
)

var (
	classifyCamera string
	classifyFile   string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Upload a clip for classification",
	Long: `Uploads a video clip recorded by a camera. The backend classifies it,
stores it and anchors its hash on the ledger. The resulting event appears in
'events list' once the backend has processed it.`,
	Example: `  cctv-cli classify --camera cam1 --file ./clip.mp4`,
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := loadSession()
		api := newAPIClient(config.Load())

		f, name, err := submit.OpenFile(classifyFile)
		if err != nil {
			fail("Error", err)
		}
		defer f.Close()

		fmt.Printf("Uploading %s for camera %s...\n", name, classifyCamera)

		res, err := submit.New(store, api).Submit(context.Background(), submit.Request{
			CameraID: classifyCamera,
			FileName: name,
			File:     f,
		})
		if err != nil {
			f.Close()
			fail("Upload failed", err)
		}

		if jsonOutput {
			printJSON(res)
			return
		}
		fmt.Println(res.String())
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&classifyCamera, "camera", "", "Camera ID the clip was recorded by")
	classifyCmd.Flags().StringVar(&classifyFile, "file", "", "Path to the video clip")
	_ = classifyCmd.MarkFlagRequired("camera")
}

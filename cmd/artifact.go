package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidscribe/vidscribe/internal/config"
	"github.com/vidscribe/vidscribe/internal/repository/artifact"
	"github.com/vidscribe/vidscribe/internal/storage"
)

// artifactCmd represents the artifact command
var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Generated artifact operations",
	Long:  `Operations for inspecting artifacts generated from processed videos.`,
}

// artifactListCmd lists artifacts belonging to a video
var artifactListCmd = &cobra.Command{
	Use:   "list [VIDEO_ID]",
	Short: "List artifacts for a video",
	Long:  `List transcript, word timing and caption artifacts recorded for a video.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dbPool, err := config.NewDatabasePool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbPool.Close()

		artifacts, err := artifact.NewRepository(dbPool).ListByVideoID(ctx, videoID)
		if err != nil {
			return fmt.Errorf("failed to list artifacts: %w", err)
		}

		if len(artifacts) == 0 {
			fmt.Printf("No artifacts found for video: %s\n", videoID)
			return nil
		}

		withURLs, _ := cmd.Flags().GetBool("urls")
		if withURLs {
			gateway, err := storage.NewGateway(cfg.Storage)
			if err != nil {
				return err
			}
			for _, a := range artifacts {
				url, err := gateway.RequestDownloadURL(ctx, a.StorageKey)
				if err != nil {
					return fmt.Errorf("failed to presign download for %s: %w", a.StorageKey, err)
				}
				fmt.Printf("%-10s %s\n", a.Kind, url)
			}
			return nil
		}

		result, err := json.MarshalIndent(artifacts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}

		fmt.Printf("Found %d artifact(s):\n%s\n", len(artifacts), string(result))
		return nil
	},
}

func init() {
	artifactListCmd.Flags().Bool("urls", false, "Print presigned download URLs instead of records")

	artifactCmd.AddCommand(artifactListCmd)
	rootCmd.AddCommand(artifactCmd)
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidscribe/vidscribe/internal/config"
	"github.com/vidscribe/vidscribe/internal/model"
	"github.com/vidscribe/vidscribe/internal/repository/artifact"
	"github.com/vidscribe/vidscribe/internal/repository/video"
	"github.com/vidscribe/vidscribe/internal/service/artifacts"
	"github.com/vidscribe/vidscribe/internal/service/pipeline"
	"github.com/vidscribe/vidscribe/internal/service/recorder"
	"github.com/vidscribe/vidscribe/internal/service/transcription"
	"github.com/vidscribe/vidscribe/internal/storage"
	"github.com/vidscribe/vidscribe/internal/transport"
)

// videoCmd represents the video command
var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Video upload and transcription operations",
	Long:  `Operations for uploading videos and managing their records.`,
}

// videoProcessCmd runs the full pipeline for one local file
var videoProcessCmd = &cobra.Command{
	Use:   "process [FILE]",
	Short: "Upload a video and generate its transcription artifacts",
	Long: `Upload an MP4 file to object storage, transcribe it and store the
derived transcript, word timing and caption artifacts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		// Transcription of long videos takes a while; cancel on Ctrl-C
		// instead of a fixed timeout
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ownerID, _ := cmd.Flags().GetString("owner")
		if ownerID == "" {
			ownerID = cfg.DefaultOwner
		}

		dbPool, err := config.NewDatabasePool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbPool.Close()

		gateway, err := storage.NewGateway(cfg.Storage)
		if err != nil {
			return err
		}
		if err := gateway.EnsureBucket(ctx); err != nil {
			return err
		}

		transcriber, err := transcription.NewClient(cfg.ElevenLabs)
		if err != nil {
			return err
		}

		uploader := transport.NewUploader()
		rec := recorder.NewService(video.NewRepository(dbPool), artifact.NewRepository(dbPool))
		extractor := artifacts.NewExtractor(gateway, uploader)
		orchestrator := pipeline.NewOrchestrator(gateway, uploader, transcriber, extractor, rec)

		updates := orchestrator.Subscribe()
		done := make(chan struct{})
		go func() {
			defer close(done)
			streamUpdates(updates)
		}()

		outcome, err := orchestrator.ProcessFile(ctx, filePath, ownerID)

		// Reset publishes the idle update that terminates the printer;
		// earlier updates are already buffered ahead of it in order
		orchestrator.Reset()
		<-done

		if err != nil {
			return err
		}

		fmt.Printf("\nVideo recorded: %s (duration %ds)\n", outcome.VideoID, outcome.Duration)
		if len(outcome.ArtifactURLs) == 0 {
			fmt.Println("No artifacts were generated.")
			return nil
		}
		fmt.Println("Artifacts:")
		for _, kind := range model.ArtifactKinds {
			if url, ok := outcome.ArtifactURLs[kind]; ok {
				fmt.Printf("  %-10s %s\n", kind, url)
			}
		}
		return nil
	},
}

// streamUpdates prints pipeline state changes until the session resets
func streamUpdates(updates <-chan pipeline.Update) {
	for update := range updates {
		state := update.State
		switch state.Stage {
		case pipeline.StageIdle:
			return
		case pipeline.StageUploading:
			fmt.Printf("\ruploading... %3d%%", state.Progress)
		case pipeline.StageUploaded:
			fmt.Println("\ruploading... done ")
		case pipeline.StageUploadFailed, pipeline.StageTranscriptionFailed:
			fmt.Printf("\n%s: %s\n", state.Stage, state.Reason)
		default:
			fmt.Printf("%s...\n", state.Stage)
		}
	}
}

// videoListCmd lists videos owned by a user
var videoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded videos",
	Long:  `List videos recorded for an owner, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ownerID, _ := cmd.Flags().GetString("owner")
		if ownerID == "" {
			ownerID = cfg.DefaultOwner
		}
		if ownerID == "" {
			return fmt.Errorf("owner is required: pass --owner or set default_owner in the config")
		}

		dbPool, err := config.NewDatabasePool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbPool.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		videos, err := video.NewRepository(dbPool).ListByUserID(ctx, ownerID, limit, offset)
		if err != nil {
			return fmt.Errorf("failed to list videos: %w", err)
		}

		if len(videos) == 0 {
			fmt.Printf("No videos found for owner: %s\n", ownerID)
			return nil
		}

		result, err := json.MarshalIndent(videos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}

		fmt.Printf("Found %d video(s):\n%s\n", len(videos), string(result))
		return nil
	},
}

// videoDeleteCmd deletes a video record
var videoDeleteCmd = &cobra.Command{
	Use:   "delete [VIDEO_ID]",
	Short: "Delete a video record",
	Long:  `Delete a video record and its artifact records. Stored objects are not removed.`,
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

		if err := video.NewRepository(dbPool).Delete(ctx, videoID); err != nil {
			return fmt.Errorf("failed to delete video: %w", err)
		}

		fmt.Printf("Video deleted: %s\n", videoID)
		return nil
	},
}

func init() {
	videoProcessCmd.Flags().String("owner", "", "Owner recorded against the video")

	videoListCmd.Flags().String("owner", "", "Owner whose videos to list")
	videoListCmd.Flags().Int("limit", 10, "Maximum number of videos to retrieve")
	videoListCmd.Flags().Int("offset", 0, "Number of videos to skip")

	videoCmd.AddCommand(videoProcessCmd)
	videoCmd.AddCommand(videoListCmd)
	videoCmd.AddCommand(videoDeleteCmd)
	rootCmd.AddCommand(videoCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidscribe/vidscribe/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration settings",
	Long:  `Manage configuration settings for vidscribe.`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init [DATABASE_URL]",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with database, storage and transcription settings.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var databaseURL string
		if len(args) > 0 {
			databaseURL = args[0]
		}

		if err := config.InitConfig(databaseURL); err != nil {
			return err
		}

		configPath, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		fmt.Printf("Created configuration file: %s\n", configPath)
		fmt.Println("Please edit the database, storage and elevenlabs settings in this file.")

		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration file path and settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration file: %s\n\n", configPath)

		cfg, err := config.NewConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Printf("DATABASE_URL:       %s\n", cfg.DatabaseURL)
		fmt.Printf("Storage endpoint:   %s\n", cfg.Storage.Endpoint)
		fmt.Printf("Storage bucket:     %s\n", cfg.Storage.Bucket)
		fmt.Printf("ElevenLabs API key: %s\n", maskSecret(cfg.ElevenLabs.APIKey))
		fmt.Printf("ElevenLabs model:   %s\n", cfg.ElevenLabs.ModelID)
		fmt.Printf("Default owner:      %s\n", cfg.DefaultOwner)
		fmt.Printf("Log level:          %s\n", cfg.Log.Level)

		return nil
	},
}

// maskSecret hides all but the last four characters of a secret
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

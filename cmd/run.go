package cmd

import (
	"context"
	"errors"
	"log"

	"drivebot/internal/bot"
	"drivebot/internal/credentials"

	"github.com/spf13/cobra"
)

// runCmd starts the Telegram bot
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Telegram bot",
	Long: `Connects to Telegram and serves Drive commands until interrupted.

The bot answers .gd and its sibling commands; see .help in any chat the
bot can read.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}

		ctx := createContext()

		store, err := credentials.OpenStore(ctx, cfg.Credentials)
		if err != nil {
			log.Fatalf("Failed to open credential store: %v", err)
		}
		defer store.Close()

		creds, err := credentials.NewManager(store, cfg.Drive)
		if err != nil {
			log.Fatalf("Failed to set up Drive authorization: %v", err)
		}

		b, err := bot.New(cfg, creds)
		if err != nil {
			log.Fatalf("Failed to start bot: %v", err)
		}

		if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Bot stopped: %v", err)
		}
		log.Println("Bot stopped.")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

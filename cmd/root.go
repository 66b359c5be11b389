package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"drivebot/internal/config"
	"drivebot/internal/drive"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg     *config.Config
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "drivebot",
	Short: "drivebot - Google Drive transfer bot for Telegram",
	Long: `drivebot uploads files to Google Drive on command, from a Telegram chat
or directly from this machine.

Usage:
  Run the bot:     drivebot run
  Upload a path:   drivebot upload --path /path/to/file

The bot side needs a Telegram bot token; both sides need Google Drive
OAuth client credentials. See the configuration file for details.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initConfig()
		cfg = config.NewDefaultConfig()

		// the default folder may be given as a link; normalize it to an
		// id up front, or treat it as unset when it cannot name a folder
		if raw := cfg.Drive.DefaultFolder; raw != "" {
			m, err := drive.Resolve(raw)
			if err != nil {
				log.Printf("Warning: ignoring default folder %q: %v", raw, err)
				cfg.Drive.DefaultFolder = ""
			} else {
				cfg.Drive.DefaultFolder = m.ID
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.drivebot.yaml)")

	viper.SetEnvPrefix("DRIVEBOT")
	viper.AutomaticEnv()
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Printf("Warning: Could not find home directory: %v", err)
			return
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".drivebot")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Printf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// createContext creates a context that cancels on interrupt signals
func createContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	return ctx
}

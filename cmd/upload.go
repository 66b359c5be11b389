package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"drivebot/internal/credentials"
	"drivebot/internal/drive"
	"drivebot/internal/ui"
	"drivebot/pkg/utils"

	"github.com/spf13/cobra"
)

var (
	uploadPath   string
	uploadParent string
)

// cliUser keys the credential store for command line usage, where there
// is no Telegram account to key by
const cliUser = "cli"

// uploadCmd uploads a local file or directory without going through Telegram
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a file or directory to Google Drive",
	Long: `Uploads a local path to Google Drive from this machine.

On first use you will be asked to open an authorization link and paste
the code back; the credential is stored for later runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.ValidateDrive(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
		if uploadPath == "" {
			log.Fatalf("--path is required")
		}

		ctx := createContext()
		if err := runUpload(ctx); err != nil {
			log.Fatalf("Upload failed: %v", err)
		}
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadPath, "path", "", "local file or directory to upload (required)")
	uploadCmd.Flags().StringVar(&uploadParent, "parent", "", "destination folder link or id (default from config)")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(ctx context.Context) error {
	store, err := credentials.OpenStore(ctx, cfg.Credentials)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer store.Close()

	creds, err := credentials.NewManager(store, cfg.Drive)
	if err != nil {
		return err
	}
	if err := authorizeCLI(ctx, creds); err != nil {
		return err
	}

	client, err := creds.Client(ctx, cliUser)
	if err != nil {
		return err
	}
	svc, err := drive.NewService(ctx, client)
	if err != nil {
		return err
	}

	parent := cfg.Drive.DefaultFolder
	if uploadParent != "" {
		m, err := drive.Resolve(uploadParent)
		if err != nil {
			return fmt.Errorf("invalid --parent: %w", err)
		}
		parent = m.ID
	}
	nav := drive.NewNavigator(svc, parent)
	tr := drive.NewTransferer(svc)

	info, err := os.Stat(uploadPath)
	if err != nil {
		return err
	}

	bar := ui.NewProgressUI()
	defer bar.Finish()

	if info.IsDir() {
		name := filepath.Base(filepath.Clean(uploadPath))
		folder, err := nav.CreateFolder(ctx, name, parent)
		if err != nil {
			return err
		}
		sy := drive.NewSyncer(nav, tr)
		if _, err := sy.UploadTree(ctx, uploadPath, folder.ID, bar.Update); err != nil {
			return err
		}
		size, err := nav.SubtreeSize(ctx, folder.ID)
		if err != nil {
			return err
		}
		bar.Finish()
		fmt.Printf("Uploaded %s (%s)\nLink: %s\n", folder.Name, utils.FormatBytes(size), folder.ViewLink)
		return nil
	}

	res, err := tr.Upload(ctx, uploadPath, parent, bar.Update)
	if err != nil {
		return err
	}
	bar.Finish()
	fmt.Printf("Uploaded %s (%s)\nLink: %s\n", res.Name, utils.FormatBytes(res.Size), res.Link)
	return nil
}

// authorizeCLI runs the interactive code exchange when no credential is
// stored yet
func authorizeCLI(ctx context.Context, creds *credentials.Manager) error {
	ok, err := creds.Authorized(cliUser)
	if err != nil || ok {
		return err
	}

	fmt.Printf("Open this link in a browser and authorize access:\n\n%s\n\n", creds.AuthURL())
	code, err := utils.AskLine(ctx, "Enter authorization code: ")
	if err != nil {
		return err
	}
	return creds.Exchange(ctx, cliUser, code)
}

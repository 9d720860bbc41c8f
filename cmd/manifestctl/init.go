//go:build cgo

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldcraft-labs/manifest/internal/embedding"
)

var forceDownload bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&forceDownload, "force", "f", false, "Force re-download even if ONNX runtime exists")
}

// initCmd downloads the native ONNX runtime library the clip_local
// embedding provider needs for offline inference.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Download the ONNX runtime for local embeddings",
	Long: `Initialize manifestctl by downloading required dependencies.

Currently this downloads the ONNX runtime library required for local
embeddings with the clip_local provider (EMBEDDING_PROVIDER=clip_local).
The library is installed to:
  ~/.config/manifest/lib/

If ONNX_PATH environment variable is set, that path takes precedence.

Examples:
  # Initialize manifestctl (download ONNX runtime)
  manifestctl init

  # Force re-download even if already installed
  manifestctl init --force`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceDownload {
		if path := embedding.GetONNXLibraryPath(); path != "" {
			cmd.Printf("ONNX runtime already installed at: %s\n", path)
			cmd.Println("Use --force to re-download.")
			return nil
		}
	}

	cmd.Printf("Downloading ONNX runtime v%s...\n", embedding.DefaultONNXRuntimeVersion)

	if err := embedding.DownloadONNXRuntime(context.Background(), ""); err != nil {
		return fmt.Errorf("failed to download ONNX runtime: %w", err)
	}

	path := embedding.GetONNXLibraryPath()
	if path == "" {
		return fmt.Errorf("download completed but library not found")
	}

	cmd.Printf("Successfully installed ONNX runtime to: %s\n", path)
	return nil
}

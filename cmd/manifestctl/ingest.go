package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/fieldcraft-labs/manifest/internal/contextextract"
	"github.com/fieldcraft-labs/manifest/internal/pipeline"
)

var (
	ingestImageURL string
	ingestUserID   string
	ingestWatchDir string
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestImageURL, "image-url", "", "public URL to record alongside the extracted item (cosmetic only)")
	ingestCmd.Flags().StringVar(&ingestUserID, "user-id", "", "owner to tag the item with")
	ingestCmd.Flags().StringVar(&ingestWatchDir, "watch-dir", "", "watch this directory and ingest every image dropped into it, instead of ingesting args")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [image]...",
	Short: "Extract context from item photos and index them for search",
	Long: `Ingest runs each image through vision extraction and embedding and
upserts the result into the vector store.

Examples:
  # Ingest a single photo
  manifestctl ingest boots.jpg

  # Ingest several at once
  manifestctl ingest boots.jpg jacket.jpg stove.jpg

  # Watch a directory and ingest every new image dropped into it
  manifestctl ingest --watch-dir ./incoming`,
	RunE: runIngest,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

func isImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestWatchDir == "" && len(args) == 0 {
		return fmt.Errorf("ingest requires at least one image path, or --watch-dir")
	}

	orch, deps, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer deps.Close()

	if ingestWatchDir != "" {
		return runIngestWatch(cmd, orch)
	}

	for _, path := range args {
		if err := ingestOne(cmd.Context(), orch, cmd, path); err != nil {
			fmt.Fprintf(os.Stderr, "ingest %s: %v\n", path, err)
		}
	}
	return nil
}

func ingestOne(ctx context.Context, orch *pipeline.Orchestrator, cmd *cobra.Command, path string) error {
	itemID, itemCtx, err := orch.Ingest(ctx, contextextract.Image{Path: path}, ingestImageURL, ingestUserID)
	if err != nil {
		return err
	}
	cmd.Printf("%s -> %s (%s, %s)\n", path, itemID, itemCtx.Name, itemCtx.InferredCategory)
	return nil
}

// runIngestWatch ingests every pre-existing image in ingestWatchDir,
// then blocks watching for fsnotify Create events until interrupted.
func runIngestWatch(cmd *cobra.Command, orch *pipeline.Orchestrator) error {
	entries, err := os.ReadDir(ingestWatchDir)
	if err != nil {
		return fmt.Errorf("reading watch directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		path := filepath.Join(ingestWatchDir, entry.Name())
		if err := ingestOne(cmd.Context(), orch, cmd, path); err != nil {
			fmt.Fprintf(os.Stderr, "ingest %s: %v\n", path, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("initializing filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(ingestWatchDir); err != nil {
		return fmt.Errorf("watching %s: %w", ingestWatchDir, err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cmd.Printf("watching %s for new images (ctrl-c to stop)\n", ingestWatchDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 || !isImageFile(event.Name) {
				continue
			}
			if err := ingestOne(ctx, orch, cmd, event.Name); err != nil {
				fmt.Fprintf(os.Stderr, "ingest %s: %v\n", event.Name, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		}
	}
}

// Package main provides the removebg-cli tool: process a file from disk with the
// configured adapter, or print the call ledger.
//
// Run with: go run ./cmd/cli process --in photo.jpg --out ./exports
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/config"
	"github.com/Bibleyou/RemoveBG-Pro/internal/export"
	"github.com/Bibleyou/RemoveBG-Pro/internal/ingest"
	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
	"github.com/Bibleyou/RemoveBG-Pro/internal/remote"
	"github.com/Bibleyou/RemoveBG-Pro/internal/storage"
	"github.com/Bibleyou/RemoveBG-Pro/internal/workflow"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "removebg-cli",
		Short: "Background removal from the command line",
	}

	root.AddCommand(processCmd(), statsCmd())
	return root
}

func processCmd() *cobra.Command {
	var in, out, instruction string
	var force bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Remove or replace the background of an image file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, in, out, instruction, force)
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Input image file")
	cmd.Flags().StringVar(&out, "out", "", "Output directory (default: export.dir)")
	cmd.Flags().StringVar(&instruction, "instruction", "", "New background description (generative adapter only)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing export with the same name")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show remote call counts from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd)
		},
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(os.Getenv("REMOVEBG_CONFIG_PATH"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	// The CLI always logs in development mode.
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}

func runProcess(cmd *cobra.Command, in, out, instruction string, force bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	processor, err := remote.New(cfg.Remote, logger)
	if err != nil {
		return err
	}

	var ledger workflow.Ledger
	if cfg.Storage.DatabasePath != "" {
		db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		ledger = storage.NewCallRepository(db)
	}

	info, err := os.Stat(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}
	if info.Size() > cfg.Upload.MaxBytes {
		return fmt.Errorf("%s: %w", in, &ingest.InvalidInputError{Reason: ingest.ReasonTooLarge})
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}

	// Files on disk carry no declared media type, so sniff one.
	declared := mimetype.Detect(data)
	payload, err := ingest.New(cfg.Upload.MaxBytes).IngestBytes(declared.String(), data)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	orchestrator := workflow.NewOrchestrator(processor, workflow.Options{
		Timeout:  cfg.Remote.Timeout,
		Messages: workflow.MessagesFor(cfg.UI.Locale),
		Ledger:   ledger,
	}, logger)

	store := workflow.NewStore("cli-" + uuid.NewString())
	store.Replace(payload)

	// Ctrl+C cancels the remote call.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.ErrOrStderr(), orchestrator.Messages().Progress)
	if err := orchestrator.Run(ctx, store, workflow.Trigger{Instruction: instruction}); err != nil {
		// The status message is the user-facing text; err is for the log.
		logger.Debug("processing failed", zap.Error(err))
		if status := store.Snapshot().Status; status.IsFailed() {
			return errors.New(status.Message)
		}
		return err
	}

	snap := store.Snapshot()
	artifact, err := export.New(cfg.Export.Prefix).Export(snap.Payload, snap.Status)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}

	if out == "" {
		out = cfg.Export.Dir
	}
	fs, err := storage.NewFileSystem(out)
	if err != nil {
		return err
	}
	if fs.Exists(artifact.Filename) && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", fs.Path(artifact.Filename))
	}
	path, err := fs.Save(artifact.Filename, artifact.Data)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runStats(cmd *cobra.Command) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Storage.DatabasePath == "" {
		return errors.New("call ledger disabled (storage.database_path is empty)")
	}
	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	counts, err := storage.NewCallRepository(db).CountByOutcome(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OUTCOME\tCALLS")
	var total int64
	for _, o := range model.AllOutcomes {
		fmt.Fprintf(w, "%s\t%d\n", o, counts[o])
		total += counts[o]
	}
	fmt.Fprintf(w, "total\t%d\n", total)
	return w.Flush()
}

package main

import (
	"context"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/thebinaryforest/ga2/internal/iodb"
	"github.com/thebinaryforest/ga2/internal/ioimport"
)

// getImportCmd returns the import command.
func getImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import <archive.zip>",
		Short: "Replace the occurrence snapshot from a Darwin Core archive",
		Long: `Import replaces all occurrence records with the contents of a
Darwin Core archive.

This command:
  1. Connects to PostgreSQL using configuration settings
  2. Opens occurrence.txt inside the zip archive
  3. Truncates the occurrences table
  4. Streams rows into the database in batch transactions
  5. Creates referenced taxa and datasets on first sight

Rows that fail validation (missing taxon key, missing date, missing
dataset key) are skipped, counted, and logged; they never abort the
run. A crashed import leaves a partial snapshot; rerun the command to
recover.

Examples:
  ga2 import gbif-download.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args)
		},
	}

	return importCmd
}

func runImport(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}
	defer op.Close()

	gn.Info("Connected to database: <em>%s@%s:%d/%s</em>",
		cfg.Database.User, cfg.Database.Host,
		cfg.Database.Port, cfg.Database.Database)

	imp := ioimport.New(cfg, op)
	if _, err := imp.Import(ctx, args[0]); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	return nil
}

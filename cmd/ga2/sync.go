package main

import (
	"context"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/thebinaryforest/ga2/internal/iodb"
	"github.com/thebinaryforest/ga2/internal/ionotify"
	"github.com/thebinaryforest/ga2/internal/iosync"
)

// getSyncCmd returns the sync command.
func getSyncCmd() *cobra.Command {
	var notify bool

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile alerts against the current occurrence snapshot",
		Long: `Sync reconciles every alert with the imported occurrences.

This command:
  1. Removes tracking rows whose records left the snapshot
  2. For each alert: tracks newly matching occurrences, removes
     matches past the alert's age threshold, and recounts unseen
     matches
  3. With --notify, hands digests for eligible alerts to the
     configured delivery URLs (notify.urls in ga2.yaml)

A failed alert leaves its state untouched; the run continues with the
remaining alerts. Run sync after every import.

Examples:
  ga2 sync
  ga2 sync --notify`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, notify)
		},
	}

	syncCmd.Flags().BoolVarP(&notify, "notify", "n",
		false, "deliver digests for eligible alerts")

	return syncCmd
}

func runSync(_ *cobra.Command, _ []string, notify bool) error {
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

	notifier, err := ionotify.New(cfg)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	syn := iosync.New(cfg, op, notifier)
	if _, err := syn.Sync(ctx, notify); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	return nil
}

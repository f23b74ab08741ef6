package main

import (
	"context"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/thebinaryforest/ga2/internal/ioalerts"
	"github.com/thebinaryforest/ga2/internal/iodb"
)

// getAlertsCmd returns the alerts command.
func getAlertsCmd() *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts <alerts.yaml>",
		Short: "Load alert definitions from a YAML file",
		Long: `Alerts creates users and alerts from a definitions file.

Users are matched by username and alerts by (owner, name); rows that
already exist are left untouched, so reloading a file is harmless.
Referenced taxa and datasets must already exist - import an archive
that carries them first.

Definitions file format:

  users:
    - username: alice
      email: alice@example.org
  alerts:
    - name: hornets
      user: alice
      email_frequency: daily        # never/daily/weekly/monthly
      auto_mark_seen_after_days: 365
      taxa: [2498252]               # GBIF taxon keys, empty = all
      datasets: [ds-key-1]          # dataset keys, empty = all

Examples:
  ga2 alerts alerts.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlerts(cmd, args)
		},
	}

	return alertsCmd
}

func runAlerts(_ *cobra.Command, args []string) error {
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

	ldr := ioalerts.New(op)
	stats, err := ldr.Load(ctx, args[0])
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	gn.Info(`Alert definitions loaded
Users created: %d, alerts created: %d, already present: %d.`,
		stats.UsersCreated, stats.AlertsCreated, stats.AlertsSkipped)

	return nil
}

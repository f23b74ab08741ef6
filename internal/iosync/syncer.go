// Package iosync implements the Syncer interface: reconciliation of
// every alert against the current occurrence snapshot. This is an
// impure I/O package that runs per-alert transactions and hands
// digests to the notifier.
package iosync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/thebinaryforest/ga2/pkg/config"
	"github.com/thebinaryforest/ga2/pkg/db"
	"github.com/thebinaryforest/ga2/pkg/ga2"
	"golang.org/x/sync/errgroup"
)

// syncer implements the Syncer interface.
type syncer struct {
	cfg      *config.Config
	operator db.Operator
	notifier ga2.Notifier

	mu    sync.Mutex
	stats ga2.SyncStats
}

// New creates a new Syncer.
func New(
	cfg *config.Config,
	op db.Operator,
	notifier ga2.Notifier,
) ga2.Syncer {
	return &syncer{cfg: cfg, operator: op, notifier: notifier}
}

// Sync removes tracking rows orphaned by the last import, then runs
// one atomic reconciliation unit per alert. A failed unit leaves its
// alert untouched; the run continues past it and reports the failure
// count at the end.
func (s *syncer) Sync(
	ctx context.Context,
	notify bool,
) (ga2.SyncStats, error) {
	pool := s.operator.Pool()
	if pool == nil {
		return ga2.SyncStats{}, NotConnectedError()
	}

	startTime := time.Now()
	s.stats = ga2.SyncStats{}
	slog.Info("Starting alert sync", "notify", notify)

	// Cleanup phase. Tracking rows join occurrences by stable identity
	// value; after a snapshot replacement some of those values no
	// longer exist and their rows come off for every alert at once.
	res, err := pool.Exec(ctx, `
		DELETE FROM alert_occurrences ao
		WHERE NOT EXISTS (
			SELECT 1 FROM occurrences o
			WHERE o.stable_id = ao.stable_id
		)`)
	if err != nil {
		return s.stats, CleanupError(err)
	}
	s.stats.StaleRemoved = res.RowsAffected()
	slog.Info("Removed stale tracking rows",
		"count", s.stats.StaleRemoved)

	alerts, err := s.loadAlerts(ctx)
	if err != nil {
		return s.stats, err
	}

	now := time.Now().UTC()

	bar := pb.Full.Start(len(alerts))
	bar.Set("prefix", "Syncing alerts: ")
	bar.Set(pb.CleanOnFinish, true)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.JobsNumber)
	for _, alert := range alerts {
		g.Go(func() error {
			err := s.syncAlert(gctx, alert, now, notify)
			bar.Increment()

			s.mu.Lock()
			defer s.mu.Unlock()
			if err != nil {
				s.stats.AlertsFailed++
				slog.Error("Failed to sync alert",
					"alert_id", alert.id,
					"alert", alert.name,
					"error", err,
				)
				// Keep going; the other alerts are independent.
				return nil
			}
			s.stats.AlertsProcessed++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		bar.Finish()
		return s.stats, err
	}
	bar.Finish()

	s.stats.Elapsed = time.Since(startTime)

	slog.Info("Sync complete",
		"alerts", s.stats.AlertsProcessed,
		"failed", s.stats.AlertsFailed,
		"new_matches", s.stats.NewMatches,
		"auto_acknowledged", s.stats.AutoAcknowledged,
		"stale_removed", s.stats.StaleRemoved,
		"notified", s.stats.Notified,
		"duration", gnfmt.TimeString(s.stats.Elapsed.Seconds()),
	)
	gn.Info(`Sync complete
Alerts synced: %s, failed %s.
New matches: %s, auto-acknowledged: %s, stale removed: %s.
Notifications sent: %s.
		Elapsed time: <em>%s</em>
`,
		humanize.Comma(int64(s.stats.AlertsProcessed)),
		humanize.Comma(int64(s.stats.AlertsFailed)),
		humanize.Comma(int64(s.stats.NewMatches)),
		humanize.Comma(int64(s.stats.AutoAcknowledged)),
		humanize.Comma(s.stats.StaleRemoved),
		humanize.Comma(int64(s.stats.Notified)),
		gnfmt.TimeString(s.stats.Elapsed.Seconds()),
	)

	if s.stats.AlertsFailed > 0 && s.stats.AlertsProcessed == 0 {
		return s.stats, AllAlertsFailedError(s.stats.AlertsFailed)
	}

	return s.stats, nil
}

// alertTask is one alert loaded for reconciliation, with its filter
// sets and owner flattened for the worker.
type alertTask struct {
	id                    uint64
	name                  string
	username              string
	email                 string
	emailFrequency        string
	autoMarkSeenAfterDays int
	lastEmailSentAt       *time.Time

	taxonIDs   []uint64
	datasetIDs []uint64
}

// loadAlerts reads all alerts, their owners, and their filter sets.
func (s *syncer) loadAlerts(ctx context.Context) ([]*alertTask, error) {
	pool := s.operator.Pool()

	rows, err := pool.Query(ctx, `
		SELECT a.id, a.name, u.username, u.email,
		       a.email_frequency, a.auto_mark_seen_after_days,
		       a.last_email_sent_at
		FROM alerts a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.id`)
	if err != nil {
		return nil, AlertListError(err)
	}
	defer rows.Close()

	var alerts []*alertTask
	byID := make(map[uint64]*alertTask)
	for rows.Next() {
		a := &alertTask{}
		err = rows.Scan(
			&a.id, &a.name, &a.username, &a.email,
			&a.emailFrequency, &a.autoMarkSeenAfterDays,
			&a.lastEmailSentAt,
		)
		if err != nil {
			return nil, AlertListError(err)
		}
		alerts = append(alerts, a)
		byID[a.id] = a
	}
	if err := rows.Err(); err != nil {
		return nil, AlertListError(err)
	}

	rows, err = pool.Query(ctx,
		"SELECT alert_id, taxon_id FROM alert_taxa")
	if err != nil {
		return nil, AlertListError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var alertID, taxonID uint64
		if err := rows.Scan(&alertID, &taxonID); err != nil {
			return nil, AlertListError(err)
		}
		if a, ok := byID[alertID]; ok {
			a.taxonIDs = append(a.taxonIDs, taxonID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, AlertListError(err)
	}

	rows, err = pool.Query(ctx,
		"SELECT alert_id, dataset_id FROM alert_datasets")
	if err != nil {
		return nil, AlertListError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var alertID, datasetID uint64
		if err := rows.Scan(&alertID, &datasetID); err != nil {
			return nil, AlertListError(err)
		}
		if a, ok := byID[alertID]; ok {
			a.datasetIDs = append(a.datasetIDs, datasetID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, AlertListError(err)
	}

	slog.Info("Loaded alerts", "count", len(alerts))
	return alerts, nil
}

package iosync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/thebinaryforest/ga2/pkg/ga2"
	"github.com/thebinaryforest/ga2/pkg/schema"
)

// Tracking rows carry 4 parameters each; 15000 rows keep the insert
// under the 65535 parameter limit.
const trackChunkSize = 15000

// match is one occurrence matched by an alert's filters.
type match struct {
	stableID uuid.UUID
	date     time.Time
}

// syncAlert runs one alert's reconciliation unit: diff the matching
// occurrences against the tracked set, track the new ones, drop the
// aged ones, recount, and decide on a notification. Everything up to
// the notification handoff commits or rolls back as a whole.
func (s *syncer) syncAlert(
	ctx context.Context,
	alert *alertTask,
	now time.Time,
	notify bool,
) error {
	tx, err := s.operator.Pool().Begin(ctx)
	if err != nil {
		return AlertError(alert.name, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	matching, err := s.matchingOccurrences(ctx, tx, alert)
	if err != nil {
		return AlertError(alert.name, err)
	}

	existing, err := trackedSet(ctx, tx, alert.id)
	if err != nil {
		return AlertError(alert.name, err)
	}

	newMatches := diffNew(matching, existing)

	for i := 0; i < len(newMatches); i += trackChunkSize {
		end := min(i+trackChunkSize, len(newMatches))
		err = trackMatches(ctx, tx, alert.id, newMatches[i:end], now)
		if err != nil {
			return AlertError(alert.name, err)
		}
	}

	// Age cutoff. Strictly older than the cutoff date comes off; an
	// observation exactly at the boundary stays tracked. Zero disables.
	// observation_date is a date column, so the cutoff must be compared
	// at date precision, not as a timestamp.
	var acked int64
	if alert.autoMarkSeenAfterDays > 0 {
		cutoff := now.AddDate(0, 0, -alert.autoMarkSeenAfterDays)
		res, err := tx.Exec(ctx, `
			DELETE FROM alert_occurrences
			WHERE alert_id = $1 AND observation_date < $2::date`,
			alert.id, cutoff)
		if err != nil {
			return AlertError(alert.name, err)
		}
		acked = res.RowsAffected()
	}

	var unseen int64
	err = tx.QueryRow(ctx, `
		UPDATE alerts
		SET unseen_count = (
			SELECT count(*) FROM alert_occurrences WHERE alert_id = $1
		)
		WHERE id = $1
		RETURNING unseen_count`,
		alert.id).Scan(&unseen)
	if err != nil {
		return AlertError(alert.name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return AlertError(alert.name, err)
	}

	s.mu.Lock()
	s.stats.NewMatches += len(newMatches)
	s.stats.AutoAcknowledged += int(acked)
	s.mu.Unlock()

	if notify && len(newMatches) > 0 && alert.shouldNotify(now) {
		err = s.notifier.Notify(ctx, ga2.Notification{
			AlertID:     alert.id,
			AlertName:   alert.name,
			Username:    alert.username,
			Email:       alert.email,
			NewMatches:  len(newMatches),
			UnseenCount: int(unseen),
		})
		if err != nil {
			// The stamp stays untouched, so the digest gets another
			// chance at the next sync.
			slog.Warn("Failed to deliver digest",
				"alert_id", alert.id,
				"alert", alert.name,
				"error", err,
			)
			return nil
		}

		_, err = s.operator.Pool().Exec(ctx,
			"UPDATE alerts SET last_email_sent_at = $2 WHERE id = $1",
			alert.id, now)
		if err != nil {
			return AlertError(alert.name, err)
		}
		s.mu.Lock()
		s.stats.Notified++
		s.mu.Unlock()
	}

	return nil
}

// shouldNotify applies the alert's frequency window to the last
// delivery time.
func (a *alertTask) shouldNotify(now time.Time) bool {
	alert := schema.Alert{
		EmailFrequency:  schema.Frequency(a.emailFrequency),
		LastEmailSentAt: a.lastEmailSentAt,
	}
	return alert.ShouldNotify(now)
}

// matchingOccurrences projects the current snapshot through the
// alert's filter sets. Empty filter sets do not restrict. Duplicate
// stable identities in the snapshot collapse to one match.
func (s *syncer) matchingOccurrences(
	ctx context.Context,
	tx pgx.Tx,
	alert *alertTask,
) ([]match, error) {
	var conds []string
	var args []any
	if len(alert.taxonIDs) > 0 {
		args = append(args, alert.taxonIDs)
		conds = append(conds,
			fmt.Sprintf("o.taxon_id = ANY($%d)", len(args)))
	}
	if len(alert.datasetIDs) > 0 {
		args = append(args, alert.datasetIDs)
		conds = append(conds,
			fmt.Sprintf("o.dataset_id = ANY($%d)", len(args)))
	}

	query := `
		SELECT DISTINCT ON (o.stable_id) o.stable_id, o.date
		FROM occurrences o`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\t\tORDER BY o.stable_id"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []match
	for rows.Next() {
		var m match
		if err := rows.Scan(&m.stableID, &m.date); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// trackedSet loads the stable identities the alert already tracks.
func trackedSet(
	ctx context.Context,
	tx pgx.Tx,
	alertID uint64,
) (map[uuid.UUID]struct{}, error) {
	rows, err := tx.Query(ctx,
		"SELECT stable_id FROM alert_occurrences WHERE alert_id = $1",
		alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}

// diffNew returns the matches whose stable identity is not tracked yet.
func diffNew(
	matching []match,
	existing map[uuid.UUID]struct{},
) []match {
	var out []match
	for _, m := range matching {
		if _, ok := existing[m.stableID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

// trackMatches inserts tracking rows for new matches. Conflicts are
// ignored: a concurrent unit for the same alert cannot exist, but the
// unique index keeps reruns harmless.
func trackMatches(
	ctx context.Context,
	tx pgx.Tx,
	alertID uint64,
	matches []match,
	now time.Time,
) error {
	if len(matches) == 0 {
		return nil
	}

	var valueStrings []string
	var valueArgs []any
	argIdx := 1
	for _, m := range matches {
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d, $%d, $%d, $%d)",
				argIdx, argIdx+1, argIdx+2, argIdx+3))
		valueArgs = append(valueArgs, alertID, m.stableID, m.date, now)
		argIdx += 4
	}

	insertQuery := fmt.Sprintf(
		`INSERT INTO alert_occurrences
		   (alert_id, stable_id, observation_date, created_at)
		 VALUES %s
		 ON CONFLICT (alert_id, stable_id) DO NOTHING`,
		strings.Join(valueStrings, ", "),
	)

	_, err := tx.Exec(ctx, insertQuery, valueArgs...)
	return err
}

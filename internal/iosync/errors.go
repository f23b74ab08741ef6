package iosync

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/thebinaryforest/ga2/pkg/errcode"
)

// NotConnectedError creates an error for a sync attempted without a
// database connection.
func NotConnectedError() error {
	msg := "Sync attempted without a database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// CleanupError creates an error for a failed stale tracking cleanup.
func CleanupError(err error) error {
	msg := "Cannot remove stale tracking rows"

	return &gn.Error{
		Code: errcode.SyncCleanupError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to clean up alert_occurrences: %w", err),
	}
}

// AlertListError creates an error for a failed alert listing.
func AlertListError(err error) error {
	msg := "Cannot load alerts for synchronization"

	return &gn.Error{
		Code: errcode.SyncAlertListError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to load alerts: %w", err),
	}
}

// AlertError creates an error for a failed per-alert unit.
func AlertError(alertName string, err error) error {
	msg := `Cannot synchronize an alert

<em>Alert:</em> %s`

	vars := []any{alertName}

	return &gn.Error{
		Code: errcode.SyncAlertError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to sync alert %q: %w", alertName, err),
	}
}

// AllAlertsFailedError creates an error for a run in which every
// alert's unit failed.
func AllAlertsFailedError(failed int) error {
	msg := `All alerts failed to synchronize

<em>Failed:</em> %d

Check the log for per-alert causes.`

	vars := []any{failed}

	return &gn.Error{
		Code: errcode.SyncAlertError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("all %d alerts failed to sync", failed),
	}
}

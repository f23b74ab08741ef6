package ionotify

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/thebinaryforest/ga2/pkg/errcode"
)

// SenderError creates an error for invalid notification URLs.
func SenderError(err error) error {
	msg := `Cannot set up notification delivery

<em>How to fix:</em>
  1. Check the notify.urls entries in ga2.yaml
  2. See the shoutrrr documentation for URL formats`

	return &gn.Error{
		Code: errcode.SyncNotifyError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to create notification sender: %w", err),
	}
}

// DeliveryError creates an error for a failed digest delivery.
func DeliveryError(alertName string, err error) error {
	msg := `Cannot deliver a notification

<em>Alert:</em> %s`

	vars := []any{alertName}

	return &gn.Error{
		Code: errcode.SyncNotifyError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to notify for %q: %w", alertName, err),
	}
}

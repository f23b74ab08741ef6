// Package ionotify implements the Notifier interface. Digests go out
// through shoutrrr service URLs when any are configured, and to the
// structured log otherwise.
package ionotify

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/thebinaryforest/ga2/pkg/config"
	"github.com/thebinaryforest/ga2/pkg/ga2"
)

// New creates a Notifier from the configured delivery URLs. An empty
// URL list yields a log-only notifier, so sync --notify always has a
// destination.
func New(cfg *config.Config) (ga2.Notifier, error) {
	if len(cfg.Notify.URLs) == 0 {
		return &logNotifier{}, nil
	}

	sender, err := shoutrrr.CreateSender(cfg.Notify.URLs...)
	if err != nil {
		return nil, SenderError(err)
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &shoutrrrNotifier{sender: sender}, nil
}

// logNotifier records digests in the structured log.
type logNotifier struct{}

func (n *logNotifier) Notify(_ context.Context, d ga2.Notification) error {
	slog.Info("Alert digest",
		"alert_id", d.AlertID,
		"alert", d.AlertName,
		"user", d.Username,
		"email", d.Email,
		"new_matches", d.NewMatches,
		"unseen_count", d.UnseenCount,
	)
	return nil
}

// shoutrrrNotifier sends digests through one sender that covers all
// configured service URLs.
type shoutrrrNotifier struct {
	sender *router.ServiceRouter
}

func (n *shoutrrrNotifier) Notify(
	_ context.Context,
	d ga2.Notification,
) error {
	title := fmt.Sprintf("ga2 alert: %s", d.AlertName)
	body := digestBody(d)

	params := stypes.Params{}
	params.SetTitle(title)

	errs := n.sender.Send(body, &params)
	for _, err := range errs {
		if err != nil {
			return DeliveryError(d.AlertName, err)
		}
	}
	return nil
}

func digestBody(d ga2.Notification) string {
	matches := "matches"
	if d.NewMatches == 1 {
		matches = "match"
	}
	return fmt.Sprintf(
		"%s: %d new %s for alert %q, %d unseen in total.",
		d.Username, d.NewMatches, matches, d.AlertName, d.UnseenCount,
	)
}

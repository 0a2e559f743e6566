package notify

import (
	"context"
	"log/slog"
)

// Poster is the subset of Slack used by the alerter.
type Poster interface {
	PostText(ctx context.Context, channel, text string) error
}

// Alerter sends one-line operational alerts.
type Alerter struct {
	poster  Poster
	channel string
	logger  *slog.Logger
}

// NewAlerter creates an alerter posting to channel.
func NewAlerter(poster Poster, channel string) *Alerter {
	return &Alerter{
		poster:  poster,
		channel: channel,
		logger:  slog.Default().With("component", "alert"),
	}
}

// Alert posts msg. A failure is logged and returned.
func (a *Alerter) Alert(ctx context.Context, msg string) error {
	a.logger.Error("alert", "message", msg)
	if err := a.poster.PostText(ctx, a.channel, "runsweep: "+msg); err != nil {
		a.logger.Error("failed to deliver alert", "channel", a.channel, "error", err)
		return err
	}
	return nil
}

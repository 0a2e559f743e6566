// Package notify renders run digests and delivers them to chat channels.
//
// Digests are built from one block per run and split by Chunk so that a
// block never straddles two messages. The Slack client retries transient
// failures; a failed post surfaces as a lifecycle.NotificationError.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"labops/runsweep/pkg/httpclient"
	"labops/runsweep/pkg/lifecycle"
)

// DefaultSlackAPI is the Slack Web API base URL.
const DefaultSlackAPI = "https://slack.com/api/"

// SlackConfig configures the Slack client.
type SlackConfig struct {
	Token  string
	APIURL string

	// Debug redirects every post to DebugChannel.
	Debug        bool
	DebugChannel string

	MaxRetries     int
	InitialBackoff time.Duration
	Timeout        time.Duration
	Transport      http.RoundTripper
}

// Slack posts messages with chat.postMessage. Transient failures are
// retried by the underlying HTTP transport.
type Slack struct {
	cfg    SlackConfig
	api    *slack.Client
	logger *slog.Logger
}

// NewSlack creates a Slack client.
func NewSlack(cfg SlackConfig) *Slack {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultSlackAPI
	}
	// The SDK appends method names directly to the base URL.
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/") + "/"
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 10 * time.Second
	}
	transport := httpclient.New(httpclient.Config{
		Name:           "slack",
		Timeout:        cfg.Timeout,
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		Transport:      cfg.Transport,
	})
	return &Slack{
		cfg: cfg,
		api: slack.New(cfg.Token,
			slack.OptionAPIURL(cfg.APIURL),
			slack.OptionHTTPClient(transport.HTTPClient()),
		),
		logger: slog.Default().With("component", "notify"),
	}
}

func (s *Slack) channel(ch string) string {
	if s.cfg.Debug && s.cfg.DebugChannel != "" {
		ch = s.cfg.DebugChannel
	}
	if !strings.HasPrefix(ch, "#") {
		ch = "#" + ch
	}
	return ch
}

func (s *Slack) post(ctx context.Context, channel string, opts ...slack.MsgOption) error {
	if _, _, err := s.api.PostMessageContext(ctx, channel, opts...); err != nil {
		return &lifecycle.NotificationError{Channel: channel, Cause: err}
	}
	s.logger.Info("posted message", "channel", channel)
	return nil
}

// PostText posts a plain message.
func (s *Slack) PostText(ctx context.Context, channel, text string) error {
	return s.post(ctx, s.channel(channel), slack.MsgOptionText(text, false))
}

// PostAttachment posts a message with a pretext header and a body.
func (s *Slack) PostAttachment(ctx context.Context, channel, pretext, text string) error {
	return s.post(ctx, s.channel(channel), slack.MsgOptionAttachments(slack.Attachment{
		Pretext: pretext,
		Text:    text,
	}))
}

// PostDigest chunks blocks and posts one attachment per chunk, each with
// the same pretext. All chunks are attempted; the first error is returned.
func (s *Slack) PostDigest(ctx context.Context, channel, pretext string, blocks []string, limit int) error {
	if len(blocks) == 0 {
		s.logger.Info("no digest data to post", "channel", channel)
		return nil
	}

	chunks := Chunk(blocks, limit)
	s.logger.Info("posting digest", "channel", channel, "runs", len(blocks), "chunks", len(chunks))

	var firstErr error
	for _, chunk := range chunks {
		if err := s.PostAttachment(ctx, channel, pretext, chunk); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Package slack implements the notify Adapter for Slack Web API posts.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/fieldsync/internal/notify"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter posts sync events to a Slack channel.
type Adapter struct {
	client    slackClient
	channelID string
}

// New creates a Slack adapter posting to the given channel.
func New(botToken, channelID string) (*Adapter, error) {
	if botToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	return &Adapter{
		client:    slackapi.New(botToken),
		channelID: channelID,
	}, nil
}

// Send posts the event as an attachment with a severity color.
func (a *Adapter) Send(ctx context.Context, ev notify.Event) error {
	attachment := slackapi.Attachment{
		Color: colorFor(ev.Kind),
		Title: ev.Title(),
		Text:  ev.Detail,
		Fields: []slackapi.AttachmentField{
			{Title: "Entity", Value: ev.EntityType + " " + ev.EntityID, Short: true},
			{Title: "At", Value: ev.OccurredAt.Format("2006-01-02 15:04:05"), Short: true},
		},
	}

	_, _, err := a.client.PostMessageContext(ctx, a.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// colorFor maps event kinds to Slack sidebar colors.
func colorFor(kind string) string {
	switch kind {
	case notify.KindSyncStalled:
		return "#d00000"
	case notify.KindRemoteRejected:
		return "#e8a317"
	case notify.KindConflict:
		return "#439fe0"
	}
	return "#cccccc"
}

// Package discord implements the notify Adapter for Discord channel posts.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/fieldsync/internal/notify"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Adapter posts sync events to a Discord channel as embeds.
type Adapter struct {
	sess      session
	channelID string
}

// New creates a Discord adapter posting to the given channel. The session
// uses plain REST calls; no gateway connection is opened.
func New(botToken, channelID string) (*Adapter, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("discord: channel is required")
	}
	sess, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Adapter{sess: sess, channelID: channelID}, nil
}

// Send posts the event as an embed with a severity color.
func (a *Adapter) Send(ctx context.Context, ev notify.Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       ev.Title(),
		Description: ev.Detail,
		Color:       colorFor(ev.Kind),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Entity", Value: ev.EntityType + " " + ev.EntityID, Inline: true},
			{Name: "At", Value: ev.OccurredAt.Format("2006-01-02 15:04:05"), Inline: true},
		},
	}

	if _, err := a.sess.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// colorFor maps event kinds to embed colors.
func colorFor(kind string) int {
	switch kind {
	case notify.KindSyncStalled:
		return 0xd00000
	case notify.KindRemoteRejected:
		return 0xe8a317
	case notify.KindConflict:
		return 0x439fe0
	}
	return 0xcccccc
}

package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrfleet/internal/fleet"
	"golang.org/x/time/rate"
)

// maxMessageLength is Discord's message content limit in characters.
const maxMessageLength = 2000

var (
	// ErrEmptyMessage is returned when SendMessage is given no content.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrMissingChannel is returned when SendMessage is given no channel.
	ErrMissingChannel = errors.New("channel ID is required")
)

// messageSender is the part of discordgo.Session the Sender needs.
type messageSender interface {
	ChannelMessageSend(
		channelID, content string,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// Sender sends channel messages through a token-bucket rate limiter.
type Sender struct {
	api     messageSender
	limiter *rate.Limiter
}

// Ensure Sender implements fleet.Sender.
var _ fleet.Sender = (*Sender)(nil)

// NewSender creates a new Sender allowing limit messages per second with burst.
func NewSender(api messageSender, limit rate.Limit, burst int) *Sender {
	return &Sender{
		api:     api,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// SendMessage sends content to channelID, waiting for a rate-limit token first.
// Content longer than Discord allows is truncated.
func (s *Sender) SendMessage(ctx context.Context, channelID, content string) error {
	if channelID == "" {
		return ErrMissingChannel
	}
	if content == "" {
		return ErrEmptyMessage
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for send rate limit: %w", err)
	}

	_, err := s.api.ChannelMessageSend(
		channelID,
		truncateMessage(content, maxMessageLength),
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

// truncateMessage cuts message to at most maxLength characters.
func truncateMessage(message string, maxLength int) string {
	runes := []rune(message)
	if len(runes) <= maxLength {
		return message
	}
	return string(runes[:maxLength-3]) + "..."
}

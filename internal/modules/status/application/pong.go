package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrfleet/internal/fleet"
	"github.com/sglre6355/sgrfleet/internal/modules/status/domain"
)

// ErrSessionNotFound is returned when no live session belongs to the bot user.
var ErrSessionNotFound = errors.New("session not found")

// PongInteractor handles the pong use case.
type PongInteractor struct {
	sessions SessionLister
}

// NewPongInteractor creates a new PongInteractor.
func NewPongInteractor(sessions SessionLister) *PongInteractor {
	return &PongInteractor{sessions: sessions}
}

// Execute evaluates content received by the bot user botUserID and, when it
// contains the trigger, answers in channelID through that bot's session.
func (p *PongInteractor) Execute(
	ctx context.Context,
	botUserID snowflake.ID,
	channelID string,
	content string,
) (*domain.PongResult, error) {
	s, err := p.findSession(botUserID)
	if err != nil {
		return nil, err
	}

	result := domain.NewPongResult(content, s.LoginInfo().Username)
	if !result.ShouldRespond {
		return result, nil
	}

	if err := s.Send(ctx, channelID, result.Response); err != nil {
		return nil, fmt.Errorf("failed to send pong: %w", err)
	}

	return result, nil
}

func (p *PongInteractor) findSession(userID snowflake.ID) (*fleet.Session, error) {
	for _, s := range p.sessions.Sessions() {
		id, err := snowflake.Parse(s.LoginInfo().UserID)
		if err != nil {
			continue
		}
		if id == userID {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", ErrSessionNotFound, userID)
}

package presentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrfleet/internal/bot"
	"github.com/sglre6355/sgrfleet/internal/modules/status/application"
)

// sendTimeout bounds how long a pong may wait for the rate limiter.
const sendTimeout = 10 * time.Second

// FleetHandler handles the /fleet command.
type FleetHandler struct {
	interactor *application.RosterInteractor
}

// NewFleetHandler creates a new FleetHandler.
func NewFleetHandler(sessions application.SessionLister) *FleetHandler {
	return &FleetHandler{
		interactor: application.NewRosterInteractor(sessions),
	}
}

// Handle processes the fleet command and sends the roster.
func (h *FleetHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	roster := h.interactor.Execute()

	return bot.RespondText(r, roster.Text(), false)
}

// PongHandler handles messages containing the 🏓 emoji.
type PongHandler struct {
	interactor *application.PongInteractor
}

// NewPongHandler creates a new PongHandler.
func NewPongHandler(sessions application.SessionLister) *PongHandler {
	return &PongHandler{
		interactor: application.NewPongInteractor(sessions),
	}
}

// HandleMessage is the discordgo event handler for MessageCreate events.
func (h *PongHandler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s.State == nil || s.State.User == nil || m.Author == nil {
		return
	}
	// Ignore bots, including other fleet members answering a pong
	if m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	botID, err := snowflake.Parse(s.State.User.ID)
	if err != nil {
		slog.Error("failed to parse bot user id", "user_id", s.State.User.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if _, err := h.interactor.Execute(ctx, botID, m.ChannelID, m.Content); err != nil {
		slog.Error("failed to handle pong", "channel", m.ChannelID, "error", err)
	}
}

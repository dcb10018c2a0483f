package status

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrfleet/internal/bot"
	"github.com/sglre6355/sgrfleet/internal/modules/status/presentation"
)

func init() {
	bot.Register(&StatusModule{})
}

// StatusModule reports on the bot fleet: the /fleet command and the 🏓 responder.
type StatusModule struct {
	fleetHandler *presentation.FleetHandler
	pongHandler  *presentation.PongHandler
}

// Name returns the module name.
func (m *StatusModule) Name() string {
	return "status"
}

// Commands returns the slash commands for this module.
func (m *StatusModule) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "fleet",
			Description: "Lists the bot accounts that are online",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *StatusModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"fleet": m.fleetHandler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *StatusModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		m.pongHandler.HandleMessage,
	}
}

// Init initializes the module.
func (m *StatusModule) Init(deps bot.ModuleDependencies) error {
	if deps.Sessions == nil {
		return errors.New("session directory is required")
	}

	m.fleetHandler = presentation.NewFleetHandler(deps.Sessions)
	m.pongHandler = presentation.NewPongHandler(deps.Sessions)
	return nil
}

// Shutdown cleans up module resources.
func (m *StatusModule) Shutdown() error {
	return nil
}

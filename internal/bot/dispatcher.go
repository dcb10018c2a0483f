package bot

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrfleet/internal/fleet"
)

// Embed colors for responses.
const (
	colorYellow = 0xFFFF00
	colorRed    = 0xFF0000
)

// discordConnection is the part of a Discord fleet connection the dispatcher needs.
type discordConnection interface {
	Discord() *discordgo.Session
	UserID() snowflake.ID
}

// Dispatcher routes inbound Discord events of every registered session to
// the loaded modules. It is the fleet's message processor.
type Dispatcher struct {
	handlers      map[string]InteractionHandler
	commands      []*discordgo.ApplicationCommand
	eventHandlers []EventHandler

	mu         sync.Mutex
	registered map[*fleet.Session]struct{}
}

// Ensure Dispatcher implements fleet.Processor and fleet.Unregisterer.
var (
	_ fleet.Processor    = (*Dispatcher)(nil)
	_ fleet.Unregisterer = (*Dispatcher)(nil)
)

// NewDispatcher collects the commands and handlers of modules.
func NewDispatcher(modules []Module) *Dispatcher {
	d := &Dispatcher{
		handlers:   make(map[string]InteractionHandler),
		registered: make(map[*fleet.Session]struct{}),
	}

	for _, mod := range modules {
		maps.Copy(d.handlers, mod.CommandHandlers())
		d.commands = append(d.commands, mod.Commands()...)
		d.eventHandlers = append(d.eventHandlers, mod.EventHandlers()...)
	}

	return d
}

// Register attaches the module handlers to the session's gateway connection and
// creates the module commands for its application. A session is wired at most
// once; a new session for the same identity is wired again.
func (d *Dispatcher) Register(s *fleet.Session) {
	conn, ok := s.Connection().(discordConnection)
	if !ok {
		slog.Warn("skipped registration of non-Discord session", "identity", s.Identity())
		return
	}

	d.mu.Lock()
	if _, dup := d.registered[s]; dup {
		d.mu.Unlock()
		slog.Warn("skipped duplicate session registration", "identity", s.Identity())
		return
	}
	d.registered[s] = struct{}{}
	d.mu.Unlock()

	session := conn.Discord()
	session.AddHandler(d.handleInteraction)
	for _, handler := range d.eventHandlers {
		session.AddHandler(handler)
	}

	d.registerCommands(s.Identity(), session, conn.UserID().String())

	slog.Info("registered session handlers",
		"identity", s.Identity(),
		"user_id", conn.UserID(),
		"commands", len(d.commands),
		"event_handlers", len(d.eventHandlers),
	)
}

// Unregister drops s once it has left the fleet. Its handlers stay attached to
// the closed gateway session, which no longer delivers events.
func (d *Dispatcher) Unregister(s *fleet.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.registered, s)
}

// Registered reports whether s has been wired.
func (d *Dispatcher) Registered(s *fleet.Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.registered[s]
	return ok
}

// registerCommands creates every module command for the application. Failures
// are logged per command so one bad command does not hide the others.
func (d *Dispatcher) registerCommands(identity string, session *discordgo.Session, appID string) {
	for _, cmd := range d.commands {
		_, err := session.ApplicationCommandCreate(
			appID,
			"", // Empty string registers commands globally
			cmd,
		)
		if err != nil {
			slog.Error("failed to register command",
				"identity", identity,
				"command", cmd.Name,
				"error", err,
			)
			continue
		}
		slog.Debug("registered command", "identity", identity, "command", cmd.Name)
	}
}

// handleInteraction routes incoming interactions to the appropriate handler.
func (d *Dispatcher) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	d.route(s, i, NewDiscordResponder(s, i.Interaction))
}

func (d *Dispatcher) route(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	cmdName := i.ApplicationCommandData().Name
	handler, ok := d.handlers[cmdName]
	if !ok {
		slog.Warn("found no handler for command", "command", cmdName)
		respondWithEmbed(r, "Unknown Command", "This command is not recognized.", colorYellow)
		return
	}

	if err := handler(s, i, r); err != nil {
		slog.Error("failed to handle command", "command", cmdName, "error", err)
		respondWithEmbed(r, "Error", "An error occurred while processing your command.", colorRed)
	}
}

// respondWithEmbed sends an embed response to an interaction.
func respondWithEmbed(r Responder, title, description string, color int) {
	err := r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       title,
					Description: description,
					Color:       color,
				},
			},
		},
	})
	if err != nil {
		slog.Error("failed to send embed response", "error", err)
	}
}

package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sglre6355/sgrfleet/internal/fleet"
	"github.com/sglre6355/sgrfleet/internal/platform/discord"
	"golang.org/x/time/rate"
)

// Bot manages the lifecycle of every configured bot account and the modules
// shared between them.
type Bot struct {
	config     *Config
	sessions   *fleet.Registry
	connector  fleet.Connector
	dispatcher *Dispatcher
	modules    []Module
}

// NewBot creates a new Bot instance with the given configuration.
func NewBot(cfg *Config) *Bot {
	var primer fleet.CachePrimer
	if cfg.PrimeGuildCache {
		primer = discord.GuildPrimer{}
	}

	return &Bot{
		config:   cfg,
		sessions: fleet.NewRegistry(cfg.JoinPollInterval, primer),
		connector: discord.NewConnector(discord.Config{
			Reconnect: cfg.DiscordReconnect,
			SendRate:  rate.Limit(cfg.SendRate),
			SendBurst: cfg.SendBurst,
		}),
		modules: make([]Module, 0),
	}
}

// LoadModules loads modules from the global registry.
func (b *Bot) LoadModules() {
	b.modules = Modules()
}

// Sessions returns the session registry.
func (b *Bot) Sessions() *fleet.Registry {
	return b.sessions
}

// Start initializes the modules, logs in every configured account and then
// activates message handling for all of them at once.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.initModules(); err != nil {
		return fmt.Errorf("failed to initialize modules: %w", err)
	}

	b.dispatcher = NewDispatcher(b.modules)

	for _, name := range b.config.AccountNames() {
		if _, err := b.AddAccount(ctx, name, b.config.DiscordAccounts[name]); err != nil {
			if shutdownErr := b.sessions.ShutdownAll(); shutdownErr != nil {
				slog.Warn("failed to close sessions after login failure", "error", shutdownErr)
			}
			return fmt.Errorf("failed to start session %s: %w", name, err)
		}
	}

	if err := b.sessions.Activate(ctx, b.dispatcher); err != nil {
		return fmt.Errorf("failed to activate sessions: %w", err)
	}

	slog.Info("started bot fleet", "sessions", b.sessions.Len())

	return nil
}

// AddAccount logs in an account and adds it to the fleet. If the account is
// already online its existing session is returned.
func (b *Bot) AddAccount(ctx context.Context, name, token string) (*fleet.Session, error) {
	factory := fleet.Dial(b.connector, name, fleet.NewCredential(token))
	return b.sessions.Upsert(ctx, name, factory)
}

// RemoveAccount logs out an account and drops it from the fleet.
func (b *Bot) RemoveAccount(name string) bool {
	_, ok := b.sessions.Remove(name)
	return ok
}

// Wait blocks until every session has disconnected or ctx is done.
func (b *Bot) Wait(ctx context.Context) error {
	return b.sessions.JoinAll(ctx)
}

// Stop gracefully shuts down the modules and every session.
func (b *Bot) Stop() error {
	for _, mod := range b.modules {
		if err := mod.Shutdown(); err != nil {
			slog.Warn("failed to shutdown module", "module", mod.Name(), "error", err)
		}
	}

	return b.sessions.ShutdownAll()
}

// initModules loads module configuration and initializes all loaded modules.
func (b *Bot) initModules() error {
	deps := ModuleDependencies{
		Config:   b.config,
		Sessions: b.sessions,
	}

	for _, mod := range b.modules {
		if cm, ok := mod.(ConfigurableModule); ok {
			if err := cm.LoadConfig(); err != nil {
				return fmt.Errorf("failed to load %s module config: %w", mod.Name(), err)
			}
		}
		if err := mod.Init(deps); err != nil {
			return fmt.Errorf("failed to initialize %s module: %w", mod.Name(), err)
		}
		slog.Debug("initialized module", "module", mod.Name())
	}

	moduleNames := make([]string, len(b.modules))
	for i, mod := range b.modules {
		moduleNames[i] = mod.Name()
	}
	slog.Info("initialized modules", "modules", moduleNames)

	return nil
}

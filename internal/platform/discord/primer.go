package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrfleet/internal/fleet"
)

// guildPageSize is the maximum page size of the current-user guilds endpoint.
const guildPageSize = 200

// guildLister is the part of discordgo.Session the GuildPrimer needs.
type guildLister interface {
	UserGuilds(
		limit int,
		beforeID, afterID string,
		withCounts bool,
		options ...discordgo.RequestOption,
	) ([]*discordgo.UserGuild, error)
}

// GuildPrimer warms a connection's state cache with every guild the bot is in.
type GuildPrimer struct{}

// Ensure GuildPrimer implements fleet.CachePrimer.
var _ fleet.CachePrimer = GuildPrimer{}

// Prime loads guilds missing from the state cache of conn. Failures are
// logged; priming never affects the session itself.
func (GuildPrimer) Prime(ctx context.Context, conn fleet.Connection) {
	c, ok := conn.(*Conn)
	if !ok {
		slog.Debug("skipped guild cache priming for non-Discord connection")
		return
	}

	count, err := primeGuilds(ctx, c.session, c.session.State)
	if err != nil {
		slog.Warn("failed to prime guild cache", "user_id", c.login.UserID, "error", err)
		return
	}
	slog.Info("primed guild cache", "user_id", c.login.UserID, "guilds", count)
}

// primeGuilds pages through the bot's guilds and adds the uncached ones to state.
// It returns how many guilds were added.
func primeGuilds(ctx context.Context, api guildLister, state *discordgo.State) (int, error) {
	count := 0
	after := ""

	for {
		guilds, err := api.UserGuilds(guildPageSize, "", after, false, discordgo.WithContext(ctx))
		if err != nil {
			return count, fmt.Errorf("failed to list guilds: %w", err)
		}

		for _, ug := range guilds {
			// Keep the richer entry delivered by the gateway.
			if _, err := state.Guild(ug.ID); err == nil {
				continue
			}
			guild := &discordgo.Guild{
				ID:   ug.ID,
				Name: ug.Name,
				Icon: ug.Icon,
			}
			if err := state.GuildAdd(guild); err != nil {
				return count, fmt.Errorf("failed to cache guild %s: %w", ug.ID, err)
			}
			count++
		}

		if len(guilds) < guildPageSize {
			return count, nil
		}
		after = guilds[len(guilds)-1].ID
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TobiSchelling/plexrec/internal/config"
	"github.com/TobiSchelling/plexrec/internal/database"
	"github.com/TobiSchelling/plexrec/internal/forward"
	"github.com/TobiSchelling/plexrec/internal/llm"
	"github.com/TobiSchelling/plexrec/internal/logging"
	"github.com/TobiSchelling/plexrec/internal/media"
	"github.com/TobiSchelling/plexrec/internal/ombi"
	"github.com/TobiSchelling/plexrec/internal/plex"
	"github.com/TobiSchelling/plexrec/internal/themes"
	"github.com/TobiSchelling/plexrec/internal/trakt"
)

// plexLibrary maps media kinds to the configured section names.
type plexLibrary struct {
	client   *plex.Client
	sections map[media.Kind]string
}

// NewPlexLibrary adapts a Plex client to Library.
func NewPlexLibrary(client *plex.Client, cfg config.Plex) Library {
	return &plexLibrary{
		client: client,
		sections: map[media.Kind]string{
			media.Movie: cfg.MovieSection,
			media.Show:  cfg.ShowSection,
		},
	}
}

func (l *plexLibrary) OpenSection(ctx context.Context, kind media.Kind) (Section, error) {
	name, ok := l.sections[kind]
	if !ok {
		return nil, fmt.Errorf("no section configured for %s", kind)
	}
	sec, err := l.client.OpenSection(ctx, name, kind)
	if err != nil {
		return nil, fmt.Errorf("opening section %q: %w", name, err)
	}
	return sec, nil
}

// Setup validates credentials and wires the real clients. Missing Plex or
// completion credentials are fatal; a forwarding target with missing
// credentials is left out with a warning. The returned cleanup closes the
// history database.
func Setup(ctx context.Context, cfg *config.Config, cfgPath string) (*Pipeline, func(), error) {
	if err := cfg.CheckCore(); err != nil {
		return nil, nil, err
	}

	deps := Deps{
		Library:  NewPlexLibrary(plex.NewClient(cfg.Plex.URL, cfg.Plex.Token), cfg.Plex),
		Provider: llm.NewOpenAIProvider(cfg.Completion),
		Feeds:    themes.NewFeedReader(),
	}

	var targets []forward.Target
	if t := ombiTarget(cfg); t != nil {
		targets = append(targets, t)
	}
	if t := traktTarget(ctx, cfg, cfgPath); t != nil {
		targets = append(targets, t)
	}
	deps.Forwarder = forward.New(forward.Options{Delay: cfg.Forward.Delay, Timeout: cfg.Forward.Timeout}, targets...)
	if names := deps.Forwarder.Targets(); len(names) > 0 {
		logging.Info().Strs("targets", names).Msg("Forwarding missing titles")
	} else {
		logging.Info().Msg("No forwarding targets configured")
	}

	cleanup := func() {}
	if path := cfg.HistoryDBPath(); path != "" {
		db, err := database.Open(path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Run history disabled")
		} else {
			deps.History = db
			cleanup = func() {
				if err := db.Close(); err != nil {
					logging.Warn().Err(err).Msg("Failed to close history database")
				}
			}
		}
	}

	return New(cfg, deps), cleanup, nil
}

func ombiTarget(cfg *config.Config) forward.Target {
	if err := cfg.Ombi.Ready(); err != nil {
		logReadiness("ombi", err)
		return nil
	}
	return ombi.New(cfg.Ombi, cfg.Forward.Timeout)
}

// traktTarget refreshes a token that is about to expire and writes it back
// to the config file before building the client.
func traktTarget(ctx context.Context, cfg *config.Config, cfgPath string) forward.Target {
	if err := cfg.Trakt.Ready(); err != nil {
		logReadiness("trakt", err)
		return nil
	}

	if trakt.NeedsRefresh(cfg.Trakt, time.Now()) {
		refreshed, err := trakt.NewAuth(cfg.Trakt, "").Refresh(ctx, cfg.Trakt)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to refresh Trakt token")
		} else {
			cfg.Trakt = refreshed
			if cfgPath != "" {
				if err := config.SaveTraktToken(cfgPath, refreshed); err != nil {
					logging.Warn().Err(err).Msg("Failed to save refreshed Trakt token")
				}
			}
			logging.Info().Msg("Refreshed Trakt token")
		}
	}

	client, err := trakt.New(ctx, cfg.Trakt, "", cfg.Forward.Timeout)
	if err != nil {
		logging.Warn().Err(err).Msg("Trakt forwarding disabled")
		return nil
	}
	return client
}

func logReadiness(name string, err error) {
	if errors.Is(err, config.ErrMissingCredentials) {
		logging.Warn().Err(err).Str("target", name).Msg("Forwarding target not configured")
		return
	}
	logging.Debug().Str("target", name).Msg("Forwarding target disabled")
}

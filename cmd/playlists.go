package main

import (
	"context"

	"github.com/tmdecker/playlist-manager/internal/services"
	"github.com/urfave/cli/v3"
)

// Playlists lists the current user's Spotify playlists with optional limit.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if err := r.requireSpotify(ctx); err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	var playlists []services.SpotifySimplePlaylist
	offset := 0
	for {
		page, err := r.spotify.UserPlaylists(ctx, 50, offset)
		if err != nil {
			return r.wrapAPIError(err)
		}

		playlists = append(playlists, page.Items...)
		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		if limit > 0 && len(playlists) >= limit {
			break
		}
		offset += len(page.Items)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.Tracks.Total)
		if p.Owner.DisplayName != "" {
			r.writePlain("   Owner: %s\n", p.Owner.DisplayName)
		}
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

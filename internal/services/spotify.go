// Spotify Web API client for playlist reconciliation.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tmdecker/playlist-manager/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxPageSize is the largest page the playlist items endpoint serves.
	MaxPageSize = 100
)

// pageFields trims playlist item responses to what reconciliation needs.
const pageFields = "items(track(uri,name,artists(name),album(name,release_date,release_date_precision))),total,limit,offset,next"

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	Name                 string `json:"name"`
	ReleaseDate          string `json:"release_date"`
	ReleaseDatePrecision string `json:"release_date_precision"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	URI     string          `json:"uri"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
// Track is nil for unavailable entries (removed episodes, local files).
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// PlaylistItemsPage is one page of a playlist's ordered items.
type PlaylistItemsPage struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// PlaylistInfo is the playlist metadata relevant to reconciliation: its
// name, track count, and the snapshot ID used for optimistic concurrency.
type PlaylistInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SnapshotID string `json:"snapshot_id"`
	Tracks     struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  Owner  `json:"owner"`
	Public bool   `json:"public"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
	URI string `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// spotifyErrorBody is the JSON error envelope the Web API returns.
type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// snapshotResponse is the body returned by playlist mutation endpoints.
type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// OAuthService is the authentication surface the CLI auth flow needs.
type OAuthService interface {
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	Authenticate(ctx context.Context, token *oauth2.Token) error
}

// SpotifyService talks to the Spotify Web API. All requests are routed
// through the shared [RateLimiter]; no method issues a raw HTTP call.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewSpotifyService creates a new Spotify service with the given OAuth2
// credentials and the shared rate limiter.
func NewSpotifyService(credentials map[string]string, limiter *RateLimiter) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	if limiter == nil {
		limiter = NewRateLimiter(RateLimiterOpts{})
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    limiter,
	}, nil
}

// Authenticate installs an OAuth2 token. The underlying HTTP client then
// refreshes the token automatically when a refresh token is present.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return shared.ErrNotAuthenticated
	}
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
	return nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 config for the callback server.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// doRequest performs a single authenticated HTTP request to the Spotify API.
// Non-2xx responses become [*APIError]; transport failures wrap [ErrNetwork].
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := spotifyBaseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PlaylistManager/1.0 (Playlist Management CLI; github.com/tmdecker)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}

		var errBody spotifyErrorBody
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil {
			apiErr.Message = errBody.Error.Message
		}

		// Unparsable Retry-After values are ignored; the executor falls
		// back to exponential backoff.
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, parseErr := strconv.Atoi(ra); parseErr == nil {
				apiErr.RetryAfter = seconds
			}
		}

		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// call routes a request through the rate-limited executor.
func (s *SpotifyService) call(ctx context.Context, op, method, endpoint string, query url.Values, body, result any) error {
	return s.limiter.Do(ctx, op, func() error {
		return s.doRequest(ctx, method, endpoint, query, body, result)
	})
}

// PlaylistPage retrieves one page of a playlist's items in server order.
func (s *SpotifyService) PlaylistPage(ctx context.Context, playlistID string, offset, limit int) (*PlaylistItemsPage, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("fields", pageFields)

	var page PlaylistItemsPage
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	if err := s.call(ctx, "playlist.page", http.MethodGet, endpoint, query, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// PlaylistInfo retrieves playlist metadata including the current snapshot ID.
func (s *SpotifyService) PlaylistInfo(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	query := url.Values{}
	query.Set("fields", "id,name,snapshot_id,tracks.total")

	var info PlaylistInfo
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)
	if err := s.call(ctx, "playlist.info", http.MethodGet, endpoint, query, nil, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// SnapshotID retrieves only the playlist's current snapshot ID.
func (s *SpotifyService) SnapshotID(ctx context.Context, playlistID string) (string, error) {
	info, err := s.PlaylistInfo(ctx, playlistID)
	if err != nil {
		return "", err
	}
	return info.SnapshotID, nil
}

// RemoveOccurrences removes a track at the given zero-based positions.
// Safe only when the URI is unique in the playlist at those positions.
func (s *SpotifyService) RemoveOccurrences(ctx context.Context, playlistID, uri string, positions []int) (string, error) {
	body := map[string]any{
		"tracks": []map[string]any{
			{"uri": uri, "positions": positions},
		},
	}

	var resp snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	if err := s.call(ctx, "playlist.remove", http.MethodDelete, endpoint, nil, body, &resp); err != nil {
		return "", err
	}

	return resp.SnapshotID, nil
}

// RemoveAllOccurrences removes every occurrence of a track URI.
func (s *SpotifyService) RemoveAllOccurrences(ctx context.Context, playlistID, uri string) (string, error) {
	body := map[string]any{
		"tracks": []map[string]any{
			{"uri": uri},
		},
	}

	var resp snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	if err := s.call(ctx, "playlist.remove_all", http.MethodDelete, endpoint, nil, body, &resp); err != nil {
		return "", err
	}

	return resp.SnapshotID, nil
}

// InsertAt adds a track URI at the given zero-based position.
func (s *SpotifyService) InsertAt(ctx context.Context, playlistID, uri string, position int) (string, error) {
	body := map[string]any{
		"uris":     []string{uri},
		"position": position,
	}

	var resp snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	if err := s.call(ctx, "playlist.insert", http.MethodPost, endpoint, nil, body, &resp); err != nil {
		return "", err
	}

	return resp.SnapshotID, nil
}

// Reorder moves rangeLength items starting at rangeStart to sit before
// insertBefore, matching the Web API's reorder semantics.
func (s *SpotifyService) Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore, rangeLength int) (string, error) {
	body := map[string]any{
		"range_start":   rangeStart,
		"insert_before": insertBefore,
		"range_length":  rangeLength,
	}

	var resp snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	if err := s.call(ctx, "playlist.reorder", http.MethodPut, endpoint, nil, body, &resp); err != nil {
		return "", err
	}

	return resp.SnapshotID, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var response SpotifyPaginatedPlaylists
	if err := s.call(ctx, "user.playlists", http.MethodGet, "/me/playlists", query, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

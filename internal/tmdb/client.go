// Package tmdb wraps the subset of the TMDB API the enrichment pipeline
// depends on: movie details by id, lookup by IMDb id, and image URL
// derivation. Everything else the provider offers is out of scope.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MovieResult is the provider's record for one movie, flattened to the
// fields the pipeline consumes.
type MovieResult struct {
	ID           int64    `json:"id"`
	IMDbID       string   `json:"imdb_id"`
	Title        string   `json:"title"`
	Overview     string   `json:"overview"`
	ReleaseDate  string   `json:"release_date"`
	Runtime      int      `json:"runtime"`
	PosterPath   string   `json:"poster_path"`
	BackdropPath string   `json:"backdrop_path"`
	Genres       []Genre  `json:"genres"`
	Credits      *Credits `json:"credits,omitempty"`
	Recs         *Page    `json:"recommendations,omitempty"`
}

// ReleaseYear extracts the year from the provider's YYYY-MM-DD release date.
func (r *MovieResult) ReleaseYear() int {
	if len(r.ReleaseDate) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(r.ReleaseDate[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Credits holds the cast and crew lists attached to a details response.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

type CastMember struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

type CrewMember struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Page is a paginated result list (used for recommendations).
type Page struct {
	Results []MovieResult `json:"results"`
}

// findResponse models the /find/{id} cross-reference lookup payload.
type findResponse struct {
	MovieResults []MovieResult `json:"movie_results"`
}

// Provider abstracts the metadata provider. A miss (the provider has no
// record for the id) is (nil, nil), not an error: callers record a
// known-absent marker instead of retrying forever.
type Provider interface {
	GetDetails(ctx context.Context, tmdbID int64) (*MovieResult, error)
	FindByIMDbID(ctx context.Context, imdbID string) (*MovieResult, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// GetDetails fetches a movie by TMDB id, with credits and recommendations
// appended in the same round trip. Returns (nil, nil) when the id is unknown.
func (c *Client) GetDetails(ctx context.Context, tmdbID int64) (*MovieResult, error) {
	endpoint := fmt.Sprintf("%s/movie/%d", c.baseURL, tmdbID)
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("append_to_response", "credits,recommendations")

	var payload MovieResult
	found, err := c.get(ctx, endpoint, params, &payload)
	if err != nil || !found {
		return nil, err
	}
	return &payload, nil
}

// FindByIMDbID resolves a movie through the cross-reference endpoint.
// Returns (nil, nil) when the IMDb id matches nothing.
func (c *Client) FindByIMDbID(ctx context.Context, imdbID string) (*MovieResult, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, errors.New("imdb id must not be empty")
	}
	endpoint := c.baseURL + "/find/" + url.PathEscape(imdbID)
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("external_source", "imdb_id")

	var payload findResponse
	found, err := c.get(ctx, endpoint, params, &payload)
	if err != nil || !found {
		return nil, err
	}
	if len(payload.MovieResults) == 0 {
		return nil, nil
	}
	return &payload.MovieResults[0], nil
}

// get performs a GET and decodes the body into out.
// The bool result is false on a 404, which callers treat as a provider miss.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) (bool, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false, fmt.Errorf("parse tmdb url: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("tmdb returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode tmdb response: %w", err)
	}
	return true, nil
}

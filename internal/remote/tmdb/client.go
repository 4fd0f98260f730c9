package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type movieResult struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
	// List endpoints send ids only.
	GenreIDs []int `json:"genre_ids"`
}

// genreNames is TMDB's fixed movie genre list (/genre/movie/list).
var genreNames = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}

type pagedResponse struct {
	Page    int           `json:"page"`
	Results []movieResult `json:"results"`
}

func (c *Client) Popular(ctx context.Context, page int) ([]domain.RemoteTitle, error) {
	if page < 1 {
		page = 1
	}
	var res pagedResponse
	if err := c.get(ctx, "/movie/popular", url.Values{"page": {strconv.Itoa(page)}}, &res); err != nil {
		return nil, err
	}
	return toTitles(res.Results), nil
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.RemoteTitle, error) {
	var res pagedResponse
	if err := c.get(ctx, "/search/movie", url.Values{"query": {query}}, &res); err != nil {
		return nil, err
	}
	return toTitles(res.Results), nil
}

func (c *Client) Movie(ctx context.Context, id string) (*domain.RemoteTitle, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return nil, fmt.Errorf("%w: remote title %q", domain.ErrNotFound, id)
	}
	var res movieResult
	if err := c.get(ctx, "/movie/"+id, nil, &res); err != nil {
		return nil, err
	}
	title := toTitle(res)
	return &title, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: TMDB API key not configured", domain.ErrUpstream)
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// strip the URL, it carries the API key
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("%w: GET %s: %v", domain.ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: GET %s", domain.ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: TMDB returned %d for %s", domain.ErrUpstream, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrUpstream, path, err)
	}
	return nil
}

func toTitles(results []movieResult) []domain.RemoteTitle {
	titles := make([]domain.RemoteTitle, 0, len(results))
	for _, r := range results {
		titles = append(titles, toTitle(r))
	}
	return titles
}

func toTitle(r movieResult) domain.RemoteTitle {
	var genres []string
	for _, g := range r.Genres {
		genres = append(genres, g.Name)
	}
	if len(genres) == 0 {
		for _, id := range r.GenreIDs {
			if name, ok := genreNames[id]; ok {
				genres = append(genres, name)
			}
		}
	}
	return domain.RemoteTitle{
		ID:          strconv.Itoa(r.ID),
		Title:       r.Title,
		Overview:    r.Overview,
		PosterPath:  r.PosterPath,
		ReleaseDate: r.ReleaseDate,
		VoteAverage: r.VoteAverage,
		Genres:      genres,
	}
}

package domain

import (
	"time"
)

type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderRemote Provider = "remote"
)

func (p Provider) IsValid() bool {
	return p == ProviderLocal || p == ProviderRemote
}

func (p Provider) String() string {
	return string(p)
}

// LocalTitle is a title uploaded by an admin. It is immutable once stored.
type LocalTitle struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Year      int       `json:"year"`
	Genres    []string  `json:"genres"`
	Overview  string    `json:"overview"`
	PosterRef string    `json:"poster,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RemoteTitle is a record returned by the remote catalog.
type RemoteTitle struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	PosterPath  string   `json:"poster_path,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	VoteAverage float64  `json:"vote_average,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// CatalogCard is the display shape shared by local and remote titles.
type CatalogCard struct {
	Provider   Provider `json:"provider"`
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	PosterPath string   `json:"poster_path,omitempty"`
	PosterRef  string   `json:"poster,omitempty"`
	Overview   string   `json:"overview"`
	Genres     []string `json:"genres,omitempty"`
}

func (t *LocalTitle) Card() CatalogCard {
	return CatalogCard{
		Provider:  ProviderLocal,
		ID:        t.ID,
		Title:     t.Title,
		PosterRef: t.PosterRef,
		Overview:  t.Overview,
		Genres:    t.Genres,
	}
}

func (t *RemoteTitle) Card() CatalogCard {
	return CatalogCard{
		Provider:   ProviderRemote,
		ID:         t.ID,
		Title:      t.Title,
		PosterPath: t.PosterPath,
		Overview:   t.Overview,
		Genres:     t.Genres,
	}
}

// CombinedCatalog keeps local and remote listings apart so the caller
// decides how to order them.
type CombinedCatalog struct {
	Local  []CatalogCard `json:"local"`
	Remote []CatalogCard `json:"remote"`
}

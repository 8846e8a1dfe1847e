package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// OpenLibraryConfig holds the search endpoints and call timeout.
type OpenLibraryConfig struct {
	BookURL   string
	AuthorURL string
	Timeout   time.Duration
}

// OpenLibraryClient is a minimal REST client to the Open Library search
// API. Each search issues one GET with limit=1 and flattens the first
// document into a field-limited record, tolerating missing fields.
type OpenLibraryClient struct {
	bookURL   string
	authorURL string
	client    *http.Client
}

func NewOpenLibraryClient(cfg OpenLibraryConfig) *OpenLibraryClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &OpenLibraryClient{
		bookURL:   cfg.BookURL,
		authorURL: cfg.AuthorURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// BookRecord is the flattened per-book result shape.
type BookRecord struct {
	Title                 string   `json:"title"`
	AuthorName            []string `json:"author_name,omitempty"`
	ISBN                  string   `json:"isbn,omitempty"`
	FirstPublishYear      int      `json:"first_publish_year,omitempty"`
	AuthorAlternativeName []string `json:"author_alternative_name,omitempty"`
	AuthorKey             []string `json:"author_key,omitempty"`
	CoverEditionKey       string   `json:"cover_edition_key,omitempty"`
	EditionCount          int      `json:"edition_count,omitempty"`
	FirstSentence         []string `json:"first_sentence,omitempty"`
	Subject               []string `json:"subject,omitempty"`
	Place                 []string `json:"place,omitempty"`
	Time                  []string `json:"time,omitempty"`
	Person                []string `json:"person,omitempty"`
}

// AuthorRecord is the flattened per-author result shape.
type AuthorRecord struct {
	Name                  string   `json:"name,omitempty"`
	Key                   string   `json:"key,omitempty"`
	AlternateNames        []string `json:"alternate_names,omitempty"`
	BirthDate             string   `json:"birth_date,omitempty"`
	TopSubjects           []string `json:"top_subjects,omitempty"`
	TopWork               string   `json:"top_work,omitempty"`
	Type                  string   `json:"type,omitempty"`
	WorkCount             int      `json:"work_count,omitempty"`
	RatingsAverage        float64  `json:"ratings_average,omitempty"`
	RatingsCount          int      `json:"ratings_count,omitempty"`
	WantToReadCount       int      `json:"want_to_read_count,omitempty"`
	AlreadyReadCount      int      `json:"already_read_count,omitempty"`
	CurrentlyReadingCount int      `json:"currently_reading_count,omitempty"`
}

type bookDoc struct {
	Title                 string   `json:"title"`
	AuthorName            []string `json:"author_name"`
	ISBN                  []string `json:"isbn"`
	FirstPublishYear      int      `json:"first_publish_year"`
	AuthorAlternativeName []string `json:"author_alternative_name"`
	AuthorKey             []string `json:"author_key"`
	CoverEditionKey       string   `json:"cover_edition_key"`
	EditionCount          int      `json:"edition_count"`
	FirstSentence         []string `json:"first_sentence"`
	Subject               []string `json:"subject"`
	Place                 []string `json:"place"`
	Time                  []string `json:"time"`
	Person                []string `json:"person"`
}

// SearchBooks looks up books by title.
func (c *OpenLibraryClient) SearchBooks(ctx context.Context, title string) ([]BookRecord, error) {
	var out struct {
		NumFound int       `json:"numFound"`
		Start    int       `json:"start"`
		Docs     []bookDoc `json:"docs"`
	}
	params := url.Values{"title": {title}, "limit": {"1"}}
	if err := c.getJSON(ctx, c.bookURL, params, &out); err != nil {
		return nil, err
	}
	books := make([]BookRecord, 0, len(out.Docs))
	for _, d := range out.Docs {
		rec := BookRecord{
			Title:                 d.Title,
			AuthorName:            d.AuthorName,
			FirstPublishYear:      d.FirstPublishYear,
			AuthorAlternativeName: d.AuthorAlternativeName,
			AuthorKey:             d.AuthorKey,
			CoverEditionKey:       d.CoverEditionKey,
			EditionCount:          d.EditionCount,
			FirstSentence:         d.FirstSentence,
			Subject:               d.Subject,
			Place:                 d.Place,
			Time:                  d.Time,
			Person:                d.Person,
		}
		if len(d.ISBN) > 0 {
			rec.ISBN = d.ISBN[0]
		}
		books = append(books, rec)
	}
	return books, nil
}

// SearchAuthors looks up authors by name.
func (c *OpenLibraryClient) SearchAuthors(ctx context.Context, name string) ([]AuthorRecord, error) {
	var out struct {
		NumFound int            `json:"numFound"`
		Start    int            `json:"start"`
		Docs     []AuthorRecord `json:"docs"`
	}
	params := url.Values{"q": {name}, "limit": {"1"}}
	if err := c.getJSON(ctx, c.authorURL, params, &out); err != nil {
		return nil, err
	}
	return out.Docs, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, base string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("openlibrary GET %s failed: %s", base, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// BookSearchTool searches Open Library for books by title.
type BookSearchTool struct {
	client *OpenLibraryClient
}

func NewBookSearchTool(client *OpenLibraryClient) *BookSearchTool {
	return &BookSearchTool{client: client}
}

func (t *BookSearchTool) Name() string { return "bookSearch" }

func (t *BookSearchTool) Description() string {
	return "Returns information about books from the Open Library API."
}

func (t *BookSearchTool) Schema() []Field {
	return []Field{{
		Name:        "title",
		Type:        "string",
		Description: "The title of the book to search for. Input is solely a string containing the title of the book.",
	}}
}

func (t *BookSearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	books, err := t.client.SearchBooks(ctx, stringArg(args, "title"))
	if err != nil {
		return nil, &ExecutionError{Tool: t.Name(), Err: err}
	}
	return books, nil
}

// AuthorSearchTool searches Open Library for authors by name.
type AuthorSearchTool struct {
	client *OpenLibraryClient
}

func NewAuthorSearchTool(client *OpenLibraryClient) *AuthorSearchTool {
	return &AuthorSearchTool{client: client}
}

func (t *AuthorSearchTool) Name() string { return "authorSearch" }

func (t *AuthorSearchTool) Description() string {
	return "Returns information about authors from the Open Library API."
}

func (t *AuthorSearchTool) Schema() []Field {
	return []Field{{
		Name:        "name",
		Type:        "string",
		Description: "The name of the author to search for. Input is solely a string containing the author's name.",
	}}
}

func (t *AuthorSearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	authors, err := t.client.SearchAuthors(ctx, stringArg(args, "name"))
	if err != nil {
		return nil, &ExecutionError{Tool: t.Name(), Err: err}
	}
	return authors, nil
}

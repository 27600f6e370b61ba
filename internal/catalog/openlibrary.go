// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	openLibraryBaseURL  = "https://openlibrary.org"
	openLibraryCoverURL = "https://covers.openlibrary.org/b/id/%d-L.jpg"

	// maxSubjectsPerBook caps subject tags carried on a search result;
	// OpenLibrary docs can list hundreds.
	maxSubjectsPerBook = 10
)

// openLibrarySearchFields is the projection requested from search.json to
// keep responses small.
const openLibrarySearchFields = "title,author_name,first_publish_year," +
	"edition_count,cover_i,subject,ratings_average,key,isbn,publisher,language"

// OpenLibraryProvider translates the OpenLibrary search and works APIs
// into the Book shape.
type OpenLibraryProvider struct {
	baseURL string
	client  *http.Client
}

// NewOpenLibraryProvider creates an OpenLibrary client. baseURL overrides
// the public endpoint when non-empty (used by tests).
func NewOpenLibraryProvider(baseURL string, timeout time.Duration) *OpenLibraryProvider {
	if baseURL == "" {
		baseURL = openLibraryBaseURL
	}
	return &OpenLibraryProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (p *OpenLibraryProvider) Name() string { return "openlibrary" }

// openLibraryDoc is a single search.json result document.
type openLibraryDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	EditionCount     int      `json:"edition_count"`
	CoverID          int      `json:"cover_i"`
	Subject          []string `json:"subject"`
	RatingsAverage   *float64 `json:"ratings_average"`
	ISBN             []string `json:"isbn"`
	Publisher        []string `json:"publisher"`
	Language         []string `json:"language"`
}

type openLibrarySearchResponse struct {
	NumFound int              `json:"numFound"`
	Docs     []openLibraryDoc `json:"docs"`
}

// Search implements Provider. Year and rating filters are pushed down to
// the API; results are still checked client-side since the pushdown is
// advisory.
func (p *OpenLibraryProvider) Search(ctx context.Context, query string, filters Filters, limit int) ([]Book, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", openLibrarySearchFields)

	if filters.MinYear > 0 {
		params.Set("first_publish_year__gte", strconv.Itoa(filters.MinYear))
	}
	if filters.MaxYear > 0 {
		params.Set("first_publish_year__lte", strconv.Itoa(filters.MaxYear))
	}
	if filters.MinRating > 0 {
		params.Set("ratings_average__gte", strconv.FormatFloat(filters.MinRating, 'f', -1, 64))
	}

	var result openLibrarySearchResponse
	if err := p.getJSON(ctx, p.baseURL+"/search.json?"+params.Encode(), &result); err != nil {
		return nil, fmt.Errorf("openlibrary search: %w", err)
	}

	books := make([]Book, 0, len(result.Docs))
	for i := range result.Docs {
		doc := &result.Docs[i]
		if doc.Title == "" {
			continue
		}

		book := p.docToBook(doc)
		if !matchesFilters(&book, filters) {
			continue
		}
		books = append(books, book)
		if len(books) >= limit {
			break
		}
	}
	return books, nil
}

// docToBook maps a search document to the normalized Book shape.
func (p *OpenLibraryProvider) docToBook(doc *openLibraryDoc) Book {
	book := Book{
		ID:           workIDFromKey(doc.Key),
		Title:        doc.Title,
		Authors:      doc.AuthorName,
		Year:         doc.FirstPublishYear,
		EditionCount: doc.EditionCount,
		Rating:       doc.RatingsAverage,
	}

	if len(doc.Subject) > maxSubjectsPerBook {
		book.Subjects = doc.Subject[:maxSubjectsPerBook]
	} else {
		book.Subjects = doc.Subject
	}
	if doc.CoverID > 0 {
		book.CoverURL = fmt.Sprintf(openLibraryCoverURL, doc.CoverID)
	}
	if len(doc.ISBN) > 0 {
		book.ISBN = doc.ISBN[0]
	}
	if len(doc.Publisher) > 0 {
		book.Publisher = doc.Publisher[0]
	}
	if len(doc.Language) > 0 {
		book.Language = doc.Language[0]
	}
	return book
}

// openLibraryWork is the /works/{id}.json payload. The description field
// is either a plain string or a {type, value} object, so it is decoded
// lazily.
type openLibraryWork struct {
	Key         string          `json:"key"`
	Title       string          `json:"title"`
	Subjects    []string        `json:"subjects"`
	Description json.RawMessage `json:"description"`
	Covers      []int           `json:"covers"`
}

// Details implements Provider.
func (p *OpenLibraryProvider) Details(ctx context.Context, bookID string) (*Book, error) {
	var work openLibraryWork
	err := p.getJSON(ctx, p.baseURL+"/works/"+url.PathEscape(bookID)+".json", &work)
	if err != nil {
		return nil, fmt.Errorf("openlibrary details: %w", err)
	}
	if work.Title == "" {
		return nil, fmt.Errorf("work %s: %w", bookID, ErrNotFound)
	}

	book := &Book{
		ID:          workIDFromKey(work.Key),
		Title:       work.Title,
		Subjects:    work.Subjects,
		Description: decodeWorkDescription(work.Description),
	}
	if book.ID == "" {
		book.ID = bookID
	}
	if len(work.Subjects) > maxSubjectsPerBook {
		book.Subjects = work.Subjects[:maxSubjectsPerBook]
	}
	if len(work.Covers) > 0 && work.Covers[0] > 0 {
		book.CoverURL = fmt.Sprintf(openLibraryCoverURL, work.Covers[0])
	}
	return book, nil
}

// getJSON performs a GET request and decodes the JSON response body.
func (p *OpenLibraryProvider) getJSON(ctx context.Context, reqURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// workIDFromKey strips the "/works/" prefix from an OpenLibrary key.
func workIDFromKey(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

// decodeWorkDescription handles the two shapes OpenLibrary uses for work
// descriptions.
func decodeWorkDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	return ""
}

// readBodyForError reads up to 512 bytes of a response body for error
// messages.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return "<unreadable body>"
	}
	return strings.TrimSpace(string(body))
}

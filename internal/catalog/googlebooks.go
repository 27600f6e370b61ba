// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	googleBooksBaseURL = "https://www.googleapis.com/books/v1"

	// googleBooksMaxResults is the API's hard cap on maxResults.
	googleBooksMaxResults = 40
)

// GoogleBooksProvider translates the Google Books volumes API into the
// Book shape. The API cannot express year or rating filters, so filters
// are enforced client-side.
type GoogleBooksProvider struct {
	baseURL string
	client  *http.Client
}

// NewGoogleBooksProvider creates a Google Books client. baseURL overrides
// the public endpoint when non-empty (used by tests).
func NewGoogleBooksProvider(baseURL string, timeout time.Duration) *GoogleBooksProvider {
	if baseURL == "" {
		baseURL = googleBooksBaseURL
	}
	return &GoogleBooksProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (p *GoogleBooksProvider) Name() string { return "googlebooks" }

type googleVolumeInfo struct {
	Title               string   `json:"title"`
	Authors             []string `json:"authors"`
	PublishedDate       string   `json:"publishedDate"`
	Categories          []string `json:"categories"`
	Description         string   `json:"description"`
	AverageRating       *float64 `json:"averageRating"`
	Publisher           string   `json:"publisher"`
	Language            string   `json:"language"`
	PageCount           int      `json:"pageCount"`
	ImageLinks          *googleImageLinks  `json:"imageLinks"`
	IndustryIdentifiers []googleIdentifier `json:"industryIdentifiers"`
}

type googleImageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

type googleIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type googleVolume struct {
	ID         string           `json:"id"`
	VolumeInfo googleVolumeInfo `json:"volumeInfo"`
}

type googleVolumesResponse struct {
	TotalItems int            `json:"totalItems"`
	Items      []googleVolume `json:"items"`
}

// Search implements Provider.
func (p *GoogleBooksProvider) Search(ctx context.Context, query string, filters Filters, limit int) ([]Book, error) {
	maxResults := limit
	if maxResults > googleBooksMaxResults {
		maxResults = googleBooksMaxResults
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("printType", "books")

	var result googleVolumesResponse
	if err := p.getJSON(ctx, p.baseURL+"/volumes?"+params.Encode(), &result); err != nil {
		return nil, fmt.Errorf("googlebooks search: %w", err)
	}

	books := make([]Book, 0, len(result.Items))
	for i := range result.Items {
		item := &result.Items[i]
		if item.VolumeInfo.Title == "" {
			continue
		}

		book := volumeToBook(item)
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

// Details implements Provider.
func (p *GoogleBooksProvider) Details(ctx context.Context, bookID string) (*Book, error) {
	var item googleVolume
	err := p.getJSON(ctx, p.baseURL+"/volumes/"+url.PathEscape(bookID), &item)
	if err != nil {
		return nil, fmt.Errorf("googlebooks details: %w", err)
	}
	if item.VolumeInfo.Title == "" {
		return nil, fmt.Errorf("volume %s: %w", bookID, ErrNotFound)
	}

	book := volumeToBook(&item)
	return &book, nil
}

// volumeToBook maps a Google Books volume to the normalized Book shape.
// Google does not report edition counts, so 1 is assumed.
func volumeToBook(item *googleVolume) Book {
	info := &item.VolumeInfo

	book := Book{
		ID:           item.ID,
		Title:        info.Title,
		Authors:      info.Authors,
		Year:         parsePublishedYear(info.PublishedDate),
		EditionCount: 1,
		Subjects:     info.Categories,
		Description:  info.Description,
		Rating:       info.AverageRating,
		ISBN:         extractISBN(info.IndustryIdentifiers),
		Publisher:    info.Publisher,
		Language:     info.Language,
		PageCount:    info.PageCount,
	}

	if info.ImageLinks != nil {
		book.CoverURL = info.ImageLinks.Thumbnail
		if book.CoverURL == "" {
			book.CoverURL = info.ImageLinks.SmallThumbnail
		}
	}
	return book
}

// parsePublishedYear extracts the year from a publishedDate, which may be
// "2006", "2006-07", or "2006-07-14".
func parsePublishedYear(date string) int {
	if date == "" {
		return 0
	}
	if idx := strings.Index(date, "-"); idx > 0 {
		date = date[:idx]
	}
	year, err := strconv.Atoi(date)
	if err != nil {
		return 0
	}
	return year
}

// extractISBN prefers ISBN_13 over ISBN_10.
func extractISBN(identifiers []googleIdentifier) string {
	var isbn10 string
	for _, id := range identifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	return isbn10
}

// getJSON performs a GET request and decodes the JSON response body.
func (p *GoogleBooksProvider) getJSON(ctx context.Context, reqURL string, result interface{}) error {
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

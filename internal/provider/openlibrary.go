package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
)

const (
	OpenLibrarySearch = "https://openlibrary.org/search.json"
	OpenLibraryCovers = "https://covers.openlibrary.org"
)

var nonISBNChars = regexp.MustCompile(`[^0-9Xx]`)

// OpenLibrary looks up book covers and ISBNs.
type OpenLibrary struct {
	client    *Client
	searchURL string
	coversURL string
}

// NewOpenLibrary returns an Open Library client. Empty URLs select the
// public endpoints.
func NewOpenLibrary(client *Client, searchURL, coversURL string) *OpenLibrary {
	if searchURL == "" {
		searchURL = OpenLibrarySearch
	}
	if coversURL == "" {
		coversURL = OpenLibraryCovers
	}
	return &OpenLibrary{client: client, searchURL: searchURL, coversURL: coversURL}
}

type olSearchResponse struct {
	Docs []struct {
		Title      string   `json:"title"`
		CoverID    int      `json:"cover_i"`
		AuthorName []string `json:"author_name"`
		ISBN       []string `json:"isbn"`
	} `json:"docs"`
}

// CoverByTitle returns the large cover of the best title match.
func (o *OpenLibrary) CoverByTitle(ctx context.Context, title string) (*ImageRef, error) {
	var res olSearchResponse
	err := o.client.getJSON(ctx, o.searchURL, url.Values{
		"title":  {title},
		"limit":  {"1"},
		"fields": {"title,cover_i"},
	}, nil, &res)
	if err != nil {
		return nil, err
	}
	if len(res.Docs) == 0 || res.Docs[0].CoverID == 0 {
		return nil, nil
	}
	doc := res.Docs[0]
	label := doc.Title
	if label == "" {
		label = title
	}
	return &ImageRef{
		Label: label,
		URL:   fmt.Sprintf("%s/b/id/%d-L.jpg", o.coversURL, doc.CoverID),
	}, nil
}

// CoverByISBN returns the cover for isbn when the cover service has one.
// A failed HEAD check means not found, never an error.
func (o *OpenLibrary) CoverByISBN(ctx context.Context, isbn string) (*ImageRef, error) {
	clean := SanitizeISBN(isbn)
	if clean == "" {
		return nil, nil
	}
	coverURL := fmt.Sprintf("%s/b/isbn/%s-L.jpg", o.coversURL, clean)
	status, err := o.client.headStatus(ctx, coverURL)
	if err != nil || status >= http.StatusBadRequest {
		return nil, nil
	}
	return &ImageRef{Label: "ISBN " + clean, URL: coverURL}, nil
}

// ISBNByTitle returns an ISBN for the first search result that has any,
// preferring a 13-digit one. The empty string means none was found.
func (o *OpenLibrary) ISBNByTitle(ctx context.Context, title, author string) (string, error) {
	params := url.Values{
		"title":  {title},
		"limit":  {"5"},
		"fields": {"title,author_name,isbn"},
	}
	if author != "" {
		params.Set("author", author)
	}
	var res olSearchResponse
	if err := o.client.getJSON(ctx, o.searchURL, params, nil, &res); err != nil {
		return "", err
	}
	for _, doc := range res.Docs {
		if len(doc.ISBN) == 0 {
			continue
		}
		return preferredISBN(doc.ISBN), nil
	}
	return "", nil
}

// SanitizeISBN keeps only digits and X.
func SanitizeISBN(s string) string {
	return nonISBNChars.ReplaceAllString(s, "")
}

// preferredISBN picks the first 13-character entry, else the first one.
// Length is the only test; catalog entries are not checksum-validated.
func preferredISBN(isbns []string) string {
	for _, isbn := range isbns {
		if len(isbn) == 13 {
			return isbn
		}
	}
	return isbns[0]
}

package provider

import (
	"context"
	"net/url"
	"sort"
)

// WikimediaAPI is the Commons MediaWiki endpoint.
const WikimediaAPI = "https://commons.wikimedia.org/w/api.php"

// Wikimedia finds freely licensed images on Wikimedia Commons.
type Wikimedia struct {
	client   *Client
	endpoint string
}

// NewWikimedia returns a Commons client. An empty endpoint selects
// WikimediaAPI.
func NewWikimedia(client *Client, endpoint string) *Wikimedia {
	if endpoint == "" {
		endpoint = WikimediaAPI
	}
	return &Wikimedia{client: client, endpoint: endpoint}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiInfoResponse struct {
	Query struct {
		Pages map[string]struct {
			ImageInfo []struct {
				URL string `json:"url"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

// Find searches the File namespace for query and returns the first hit's
// original URL, or nil when nothing matches.
func (w *Wikimedia) Find(ctx context.Context, query string) (*ImageRef, error) {
	var search wikiSearchResponse
	err := w.client.getJSON(ctx, w.endpoint, url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"list":        {"search"},
		"srsearch":    {query},
		"srnamespace": {"6"},
		"srlimit":     {"1"},
	}, nil, &search)
	if err != nil {
		return nil, err
	}
	if len(search.Query.Search) == 0 {
		return nil, nil
	}
	title := search.Query.Search[0].Title

	var info wikiInfoResponse
	err = w.client.getJSON(ctx, w.endpoint, url.Values{
		"action": {"query"},
		"format": {"json"},
		"titles": {title},
		"prop":   {"imageinfo"},
		"iiprop": {"url"},
	}, nil, &info)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(info.Query.Pages))
	for id := range info.Query.Pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, ii := range info.Query.Pages[id].ImageInfo {
			if ii.URL != "" {
				return &ImageRef{Label: title, URL: ii.URL}, nil
			}
		}
	}
	return nil, nil
}

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	TMDBAPI    = "https://api.themoviedb.org/3"
	TMDBImages = "https://image.tmdb.org/t/p/w500"

	DefaultRegion = "US"
)

// Media selects the TMDB catalogue.
type Media string

const (
	MediaMovie Media = "movie"
	MediaTV    Media = "tv"
)

// TMDBMatch is the first search result for a title.
type TMDBMatch struct {
	ID         int
	Title      string
	PosterPath string
}

// TMDB searches The Movie Database. Keys starting with "ey" are v4 read
// tokens and go in the Authorization header; anything else is a v3 api_key.
type TMDB struct {
	client   *Client
	apiKey   string
	apiURL   string
	imageURL string
}

// NewTMDB returns a TMDB client. Empty URLs select the public endpoints.
func NewTMDB(client *Client, apiKey, apiURL, imageURL string) *TMDB {
	if apiURL == "" {
		apiURL = TMDBAPI
	}
	if imageURL == "" {
		imageURL = TMDBImages
	}
	return &TMDB{client: client, apiKey: apiKey, apiURL: apiURL, imageURL: imageURL}
}

// Configured reports whether an API key is set.
func (t *TMDB) Configured() bool {
	return t.apiKey != ""
}

func (t *TMDB) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	var header http.Header
	if strings.HasPrefix(t.apiKey, "ey") {
		header = http.Header{"Authorization": {"Bearer " + t.apiKey}}
	} else {
		params.Set("api_key", t.apiKey)
	}
	return t.client.getJSON(ctx, t.apiURL+endpoint, params, header, out)
}

type tmdbSearchResponse struct {
	Results []struct {
		ID         int    `json:"id"`
		Title      string `json:"title"`
		Name       string `json:"name"`
		PosterPath string `json:"poster_path"`
	} `json:"results"`
}

// Search returns the first match for query, or nil when there is none or
// no key is configured.
func (t *TMDB) Search(ctx context.Context, media Media, query string) (*TMDBMatch, error) {
	if !t.Configured() {
		return nil, nil
	}
	var res tmdbSearchResponse
	err := t.get(ctx, "/search/"+string(media), url.Values{
		"query":         {query},
		"include_adult": {"false"},
		"language":      {"en-US"},
	}, &res)
	if err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, nil
	}
	r := res.Results[0]
	title := r.Title
	if title == "" {
		title = r.Name
	}
	if title == "" {
		title = query
	}
	return &TMDBMatch{ID: r.ID, Title: title, PosterPath: r.PosterPath}, nil
}

// PosterRef returns the poster of m, or nil when it has none.
func (t *TMDB) PosterRef(m *TMDBMatch) *ImageRef {
	if m == nil || m.PosterPath == "" {
		return nil
	}
	return &ImageRef{Label: m.Title, URL: t.imageURL + m.PosterPath}
}

// Poster searches for query and returns the first result's poster.
func (t *TMDB) Poster(ctx context.Context, media Media, query string) (*ImageRef, error) {
	m, err := t.Search(ctx, media, query)
	if err != nil {
		return nil, err
	}
	return t.PosterRef(m), nil
}

type tmdbOffer struct {
	ProviderName string `json:"provider_name"`
}

type tmdbRegionOffers struct {
	Link     string      `json:"link"`
	Flatrate []tmdbOffer `json:"flatrate"`
	Free     []tmdbOffer `json:"free"`
	Ads      []tmdbOffer `json:"ads"`
	Rent     []tmdbOffer `json:"rent"`
	Buy      []tmdbOffer `json:"buy"`
}

// groups returns the offer groups in reporting order.
func (r tmdbRegionOffers) groups() [][]tmdbOffer {
	return [][]tmdbOffer{r.Flatrate, r.Free, r.Ads, r.Rent, r.Buy}
}

// WatchProviders lists the streaming services offering id in region,
// ordered flatrate, free, ads, rent, buy and deduplicated.
func (t *TMDB) WatchProviders(ctx context.Context, media Media, id int, region string) ([]string, error) {
	if !t.Configured() {
		return nil, nil
	}
	if region == "" {
		region = DefaultRegion
	}
	var res struct {
		Results map[string]tmdbRegionOffers `json:"results"`
	}
	endpoint := fmt.Sprintf("/%s/%d/watch/providers", media, id)
	if err := t.get(ctx, endpoint, url.Values{}, &res); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, group := range res.Results[strings.ToUpper(region)].groups() {
		for _, o := range group {
			if o.ProviderName == "" || seen[o.ProviderName] {
				continue
			}
			seen[o.ProviderName] = true
			names = append(names, o.ProviderName)
		}
	}
	return names, nil
}

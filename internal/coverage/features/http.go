package features

import (
	"context"
	"sync"

	"github.com/paulmach/orb"

	"github.com/banshee-data/coverage.planner/internal/httputil"
)

// DefaultDownloadLimit bounds remote GeoJSON downloads.
const DefaultDownloadLimit = 64 << 20 // 64MB

// HTTPProvider serves layers from a GeoJSON FeatureCollection published at
// a URL. The document is downloaded on first use and cached.
type HTTPProvider struct {
	URL    string
	Client httputil.HTTPClient
	Limit  int64

	mu    sync.Mutex
	inner *GeoJSONProvider
}

// NewHTTPProvider creates a provider for url. A nil client uses
// http.DefaultClient.
func NewHTTPProvider(url string, client httputil.HTTPClient) *HTTPProvider {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &HTTPProvider{URL: url, Client: client, Limit: DefaultDownloadLimit}
}

// Fetch downloads the collection if needed and selects layer from it.
func (p *HTTPProvider) Fetch(ctx context.Context, layer string, tags Tags) ([]orb.Geometry, error) {
	inner, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Fetch(ctx, layer, tags)
}

// Boundary downloads the collection if needed and returns its boundary.
func (p *HTTPProvider) Boundary(ctx context.Context) (orb.Polygon, error) {
	inner, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Boundary()
}

// Layers downloads the collection if needed and lists its layer names.
func (p *HTTPProvider) Layers(ctx context.Context) ([]string, error) {
	inner, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Layers(), nil
}

func (p *HTTPProvider) load(ctx context.Context) (*GeoJSONProvider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inner != nil {
		return p.inner, nil
	}
	data, err := httputil.GetBytes(ctx, p.Client, p.URL, p.Limit)
	if err != nil {
		return nil, err
	}
	inner, err := NewGeoJSONProvider(data)
	if err != nil {
		return nil, err
	}
	p.inner = inner
	return inner, nil
}

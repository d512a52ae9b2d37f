package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/cache"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/util"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/worker"
)

const (
	geocodeLimiterKey = "nominatim"
	geocodeCacheTTL   = 24 * time.Hour
	maxGeocodeBody    = 1 << 20
)

// Address is a reverse-geocoded location
type Address struct {
	DisplayName string    `json:"display_name"`
	Road        string    `json:"road,omitempty"`
	Suburb      string    `json:"suburb,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	Postcode    string    `json:"postcode,omitempty"`
	Country     string    `json:"country,omitempty"`
	Point       geo.Point `json:"point"`
}

// Geocoder resolves a position to an address
type Geocoder interface {
	Reverse(ctx context.Context, p geo.Point) (*Address, error)
}

// NominatimGeocoder reverse geocodes through a Nominatim server
type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *worker.Limiter
	cache     cache.Cache
}

// NewNominatimGeocoder creates a geocoder; c may be nil to disable caching
func NewNominatimGeocoder(config model.GeocodeConfig, httpConfig model.HTTPConfig, c cache.Cache) *NominatimGeocoder {
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 1 // Nominatim usage policy
	}
	return &NominatimGeocoder{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		userAgent: config.UserAgent,
		client:    util.NewHTTPClient(10*time.Second, httpConfig.HTTPProxy, httpConfig.HTTPSProxy, httpConfig.NoProxy),
		limiter:   worker.NewLimiter(rps, 1),
		cache:     c,
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		Road     string `json:"road"`
		Suburb   string `json:"suburb"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		State    string `json:"state"`
		Postcode string `json:"postcode"`
		Country  string `json:"country"`
	} `json:"address"`
}

// Reverse resolves p, serving repeated positions from the cache
func (g *NominatimGeocoder) Reverse(ctx context.Context, p geo.Point) (*Address, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid position %v", p)
	}

	key := cache.CacheKey("geocode", fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lng))
	if g.cache != nil {
		if data, ok := g.cache.Get(key); ok {
			var addr Address
			if err := json.Unmarshal(data, &addr); err == nil {
				return &addr, nil
			}
		}
	}

	if err := g.limiter.Wait(ctx, geocodeLimiterKey); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Lng, 'f', 6, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGeocodeBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var out nominatimResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("geocode: %s", out.Error)
	}

	addr := &Address{
		DisplayName: out.DisplayName,
		Road:        out.Address.Road,
		Suburb:      out.Address.Suburb,
		City:        firstNonEmpty(out.Address.City, out.Address.Town, out.Address.Village),
		State:       out.Address.State,
		Postcode:    out.Address.Postcode,
		Country:     out.Address.Country,
		Point:       p,
	}

	if g.cache != nil {
		if data, err := json.Marshal(addr); err == nil {
			_ = g.cache.Set(key, data, geocodeCacheTTL)
		}
	}
	return addr, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

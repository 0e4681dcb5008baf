package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/internal/cache"
	"github.com/romsan-app/romsan/network"
	"github.com/romsan-app/romsan/source"
	"github.com/samber/mo"
)

// LoadSource builds a declarative-API backend from the descriptor's base URL
// and the api.json config shipped with the source.
func LoadSource(desc *source.SourceDescriptor) (source.Source, error) {
	cfg, err := loadConfig(desc.InstallPath)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(desc.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}

	return &apiSource{desc: desc, cfg: cfg, base: base}, nil
}

type apiSource struct {
	desc *source.SourceDescriptor
	cfg  *apiConfig
	base *url.URL
}

func (s *apiSource) ID() string   { return s.desc.ID }
func (s *apiSource) Name() string { return s.desc.Name }

func (s *apiSource) Search(ctx context.Context, filters source.Filters, page source.Page) ([]*source.Rom, error) {
	ep := s.cfg.Search

	params := url.Values{}
	setParam := func(name, value string) {
		if name != "" && value != "" {
			params.Set(name, value)
		}
	}
	setParam(ep.Params.Query, filters.Query)
	setParam(ep.Params.Platforms, strings.Join(filters.Platforms, ","))
	setParam(ep.Params.Regions, strings.Join(filters.Regions, ","))
	setParam(ep.Params.Page, strconv.Itoa(page.Number))
	setParam(ep.Params.Size, strconv.Itoa(page.Size))

	endpointURL := s.resolve(ep.Path, params)

	cacheKey := cache.GenerateKey(endpointURL, s.ID())
	var cachedRoms []*source.Rom
	if cache.Read(cacheKey, &cachedRoms) {
		return cachedRoms, nil
	}

	body, err := s.fetch(ctx, endpointURL)
	if err != nil {
		return nil, err
	}

	items, err := decodeList(body, ep.ListField)
	if err != nil {
		return nil, err
	}

	roms := make([]*source.Rom, 0, len(items))
	for _, item := range items {
		if rom := s.romFromObject(item); rom != nil {
			roms = append(roms, rom)
		}
	}

	if len(roms) > 0 {
		_ = cache.Write(cacheKey, roms)
	}

	return roms, nil
}

func (s *apiSource) GetRom(ctx context.Context, slug string, includeLinks bool) (mo.Option[*source.Rom], error) {
	ep := s.cfg.Rom

	params := url.Values{}
	if includeLinks && ep.LinksParam != "" {
		params.Set(ep.LinksParam, "true")
	}

	path := strings.ReplaceAll(ep.Path, "{slug}", url.PathEscape(slug))
	body, err := s.fetch(ctx, s.resolve(path, params))
	if err != nil {
		return mo.None[*source.Rom](), err
	}

	var object map[string]any
	if err := json.Unmarshal(body, &object); err != nil {
		return mo.None[*source.Rom](), fmt.Errorf("malformed entry response: %w", err)
	}

	rom := s.romFromObject(object)
	if rom == nil {
		return mo.None[*source.Rom](), nil
	}

	if !includeLinks {
		rom.Links = nil
	}

	return mo.Some(rom), nil
}

func (s *apiSource) Regions(ctx context.Context) (map[string]string, error) {
	regions := make(map[string]string)
	if s.cfg.Regions.Path == "" {
		return regions, nil
	}

	body, err := s.fetch(ctx, s.resolve(s.cfg.Regions.Path, nil))
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(body, &regions); err != nil {
		return nil, fmt.Errorf("malformed regions response: %w", err)
	}

	return regions, nil
}

// resolve joins an endpoint path and query onto the base URL.
func (s *apiSource) resolve(path string, params url.Values) string {
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	if params != nil {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// fetch performs the HTTP call, routed through the fingerprinted TLS client
// when the backend config demands it.
func (s *apiSource) fetch(ctx context.Context, endpointURL string) ([]byte, error) {
	if s.cfg.TLSFingerprint {
		body, status, err := network.DoTLSRequest(http.MethodGet, endpointURL, nil, "")
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", status, endpointURL)
		}
		return []byte(body), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := network.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpointURL)
	}

	return io.ReadAll(resp.Body)
}

// decodeList extracts the result array from a response body, optionally nested
// under a named field.
func decodeList(body []byte, listField string) ([]map[string]any, error) {
	if listField == "" {
		var items []map[string]any
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("malformed list response: %w", err)
		}
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("malformed list response: %w", err)
	}

	raw, ok := wrapper[listField]
	if !ok {
		return nil, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("malformed %q field: %w", listField, err)
	}
	return items, nil
}

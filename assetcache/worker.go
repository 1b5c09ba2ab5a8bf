package assetcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/eapayk/quanlitien/config"
	"github.com/eapayk/quanlitien/store"
)

// Worker serves shell assets cache-first from a named cache generation.
// Install pre-populates the current generation, Activate drops every older
// one, and Fetch answers requests without ever surfacing a network error.
type Worker struct {
	cache    *NamedCache
	registry *store.Store
	client   *http.Client
	upstream *url.URL
	shell    []string
}

// New creates a worker for the configured cache generation. The registry
// store tracks which generations exist so Activate can prune them.
func New(cfg *config.AssetsConfig, backend *cache.Cache[[]byte], registry *store.Store) (*Worker, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	shell := cfg.Shell
	if len(shell) == 0 {
		shell = config.DefaultShell
	}

	return &Worker{
		cache:    NewNamedCache(backend, cfg.CacheName),
		registry: registry,
		upstream: upstream,
		shell:    shell,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// CacheName returns the active cache generation name.
func (w *Worker) CacheName() string {
	return w.cache.Name()
}

// Stats reports the backend cache hit and miss counters.
func (w *Worker) Stats() *codec.Stats {
	return w.cache.GetStats()
}

// Install fetches and caches the shell asset list, then registers the cache
// generation. Any asset failing to fetch fails the whole install. Assets are
// fetched concurrently but stored sequentially: the tag index behind Drop is
// not safe for concurrent writers.
func (w *Worker) Install(ctx context.Context) error {
	targets := make([]*url.URL, len(w.shell))
	fetched := make([]CachedResponse, len(w.shell))

	g, gctx := errgroup.WithContext(ctx)
	for i, asset := range w.shell {
		i, asset := i, asset
		g.Go(func() error {
			ref, err := url.Parse(asset)
			if err != nil {
				return fmt.Errorf("invalid shell asset %s: %w", asset, err)
			}
			targets[i] = w.resolve(ref)

			resp, err := w.fetchUpstream(gctx, targets[i], "")
			if err != nil {
				return fmt.Errorf("failed to pre-cache %s: %w", asset, err)
			}
			if resp.Status != http.StatusOK {
				return fmt.Errorf("failed to pre-cache %s: unexpected status %d", asset, resp.Status)
			}
			fetched[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, target := range targets {
		if err := w.cache.Set(ctx, target.String(), fetched[i]); err != nil {
			return fmt.Errorf("failed to cache %s: %w", target, err)
		}
	}

	names := w.registry.CacheNames(ctx)
	if !lo.Contains(names, w.cache.Name()) {
		names = append(names, w.cache.Name())
		if err := w.registry.SaveCacheNames(ctx, names); err != nil {
			return fmt.Errorf("failed to register cache name: %w", err)
		}
	}

	log.Info("asset cache installed", "cache", w.cache.Name(), "assets", len(w.shell))
	return nil
}

// Activate invalidates every registered cache generation other than the
// current one and prunes the registry down to it.
func (w *Worker) Activate(ctx context.Context) error {
	for _, name := range w.registry.CacheNames(ctx) {
		if name == w.cache.Name() {
			continue
		}
		if err := w.cache.WithName(name).Drop(ctx); err != nil {
			log.Warn("failed to drop stale asset cache", "cache", name, "error", err)
			continue
		}
		log.Info("dropped stale asset cache", "cache", name)
	}

	if err := w.registry.SaveCacheNames(ctx, []string{w.cache.Name()}); err != nil {
		return fmt.Errorf("failed to prune cache registry: %w", err)
	}
	return nil
}

// ServeHTTP answers a request through Fetch and replays the result.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	resp := w.Fetch(r.Context(), r)
	for key, values := range resp.Header {
		for _, v := range values {
			rw.Header().Add(key, v)
		}
	}
	rw.WriteHeader(resp.Status)
	if _, err := rw.Write(resp.Body); err != nil {
		log.Debug("failed to write asset response", "url", r.URL.String(), "error", err)
	}
}

// Fetch resolves a request cache-first: a hit is returned verbatim, a miss
// goes to the network and successful same-origin responses are copied into
// the cache. A network failure is answered with an offline fallback, never
// with an error.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) CachedResponse {
	target := w.resolve(req.URL)

	if cached, err := w.cache.Get(ctx, target.String()); err == nil {
		log.Debug("asset cache hit", "url", target.String())
		return cached
	}

	resp, err := w.fetchUpstream(ctx, target, req.Header.Get("Accept"))
	if err != nil {
		log.Debug("upstream fetch failed", "url", target.String(), "error", err)
		return w.offline(ctx, req)
	}

	if resp.Status == http.StatusOK && w.sameOrigin(target) {
		if err := w.cache.Set(ctx, target.String(), resp); err != nil {
			log.Warn("failed to cache asset", "url", target.String(), "error", err)
		}
	}
	return resp
}

// precache fetches a shell asset and stores it unconditionally.
func (w *Worker) precache(ctx context.Context, asset string) error {
	ref, err := url.Parse(asset)
	if err != nil {
		return err
	}
	target := w.resolve(ref)

	resp, err := w.fetchUpstream(ctx, target, "")
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.Status)
	}
	return w.cache.Set(ctx, target.String(), resp)
}

func (w *Worker) fetchUpstream(ctx context.Context, target *url.URL, accept string) (CachedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return CachedResponse{}, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return CachedResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CachedResponse{}, err
	}

	return CachedResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

// offline picks the fallback for an unreachable upstream: page navigations
// get the cached shell, stylesheets and scripts get inert placeholders,
// everything else gets an empty 408.
func (w *Worker) offline(ctx context.Context, req *http.Request) CachedResponse {
	if strings.Contains(req.Header.Get("Accept"), "text/html") {
		index := w.resolve(&url.URL{Path: "/index.html"})
		if cached, err := w.cache.Get(ctx, index.String()); err == nil {
			return cached
		}
	}

	target := w.resolve(req.URL).String()
	switch {
	case strings.Contains(target, ".css"):
		return placeholder("/* offline */", "text/css")
	case strings.Contains(target, ".js"):
		return placeholder("// offline", "application/javascript")
	}

	return CachedResponse{
		Status: http.StatusRequestTimeout,
		Header: http.Header{},
		Body:   []byte{},
	}
}

func placeholder(body, contentType string) CachedResponse {
	return CachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   []byte(body),
	}
}

// resolve makes a request URL absolute against the upstream. Absolute URLs
// (the CDN stylesheet) pass through untouched.
func (w *Worker) resolve(ref *url.URL) *url.URL {
	if ref.IsAbs() {
		return ref
	}
	return w.upstream.ResolveReference(ref)
}

func (w *Worker) sameOrigin(target *url.URL) bool {
	return target.Scheme == w.upstream.Scheme && target.Host == w.upstream.Host
}

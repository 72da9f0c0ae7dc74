package query

import (
	"context"
	"time"

	"github.com/arcanalyse/encounter-builder/internal/domain"
	"github.com/arcanalyse/encounter-builder/internal/logger"
	"github.com/arcanalyse/encounter-builder/internal/storage"
	"github.com/arcanalyse/encounter-builder/pkg/apiclient"
)

const (
	HealthPath  = "/api/v1/health"
	VersionPath = "/api/v1/version"
)

// upstream is what every query against one API deployment shares.
type upstream struct {
	client    *apiclient.Client
	cache     storage.Cache
	staleTime time.Duration
	headers   map[string]string
	log       logger.Logger
}

// key scopes cache entries by base address so targets sharing a cache do
// not collide.
func (u upstream) key(parts ...string) []string {
	out := make([]string, 0, len(parts)+1)
	out = append(out, parts...)
	return append(out, u.client.BaseURL())
}

func newQuery[T any](u upstream, key []string, path string) Query[T] {
	return Query[T]{
		Key:       key,
		StaleTime: u.staleTime,
		Log:       u.log,
		Fetch: func(ctx context.Context) (T, error) {
			return apiclient.Fetch[T](ctx, u.client, apiclient.Request{Path: path, Headers: u.headers})
		},
	}
}

// System exposes the health and version queries of the upstream API.
type System struct {
	upstream
}

// NewSystem builds the system queries. cache may be nil.
func NewSystem(client *apiclient.Client, cache storage.Cache, staleTime time.Duration) *System {
	return &System{upstream{client: client, cache: cache, staleTime: staleTime}}
}

// WithHeaders returns a copy of s sending headers on every request.
func (s *System) WithHeaders(headers map[string]string) *System {
	cp := *s
	cp.headers = headers
	return &cp
}

// WithLogger returns a copy of s reporting cache failures to log.
func (s *System) WithLogger(log logger.Logger) *System {
	cp := *s
	cp.log = log
	return &cp
}

// HealthQuery describes the ["system","health"] query.
func (s *System) HealthQuery() Query[domain.Health] {
	return newQuery[domain.Health](s.upstream, s.key("system", "health"), HealthPath)
}

// VersionQuery describes the ["system","version"] query.
func (s *System) VersionQuery() Query[domain.Version] {
	return newQuery[domain.Version](s.upstream, s.key("system", "version"), VersionPath)
}

// Health runs the health query.
func (s *System) Health(ctx context.Context) (domain.Health, error) {
	return s.HealthQuery().Run(ctx, s.cache)
}

// Version runs the version query.
func (s *System) Version(ctx context.Context) (domain.Version, error) {
	return s.VersionQuery().Run(ctx, s.cache)
}

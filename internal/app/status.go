package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/arcanalyse/encounter-builder/internal/config"
	"github.com/arcanalyse/encounter-builder/internal/domain"
	"github.com/arcanalyse/encounter-builder/internal/logger"
	"github.com/arcanalyse/encounter-builder/internal/storage"
	"github.com/arcanalyse/encounter-builder/pkg/apiclient"
	"github.com/arcanalyse/encounter-builder/pkg/query"
	"gopkg.in/yaml.v3"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"

	headerTitle      = "Arcanalyse — MVP"
	headerSubtitle   = "Encounter builder (baseline). API integration comes next."
	monsterListLabel = "list placeholder"
	encounterLabel   = "No monsters selected."
	pending          = "…"
)

// StatusView is the rendered encounter builder header.
type StatusView struct {
	Title     string          `json:"title" yaml:"title"`
	Subtitle  string          `json:"subtitle" yaml:"subtitle"`
	APIBase   string          `json:"api_base" yaml:"api_base"`
	Health    *domain.Health  `json:"health" yaml:"health"`
	Version   *domain.Version `json:"version" yaml:"version"`
	Monsters  string          `json:"monsters" yaml:"monsters"`
	Encounter string          `json:"encounter" yaml:"encounter"`
}

// APILine renders "API: <status> · <name> <version> (<env>)", with … for
// each query that has no data.
func (v StatusView) APILine() string {
	status, version := pending, pending
	if v.Health != nil {
		status = v.Health.Status
	}
	if v.Version != nil {
		version = v.Version.Label()
	}
	return "API: " + status + " · " + version
}

// Status loads the system queries and renders the header.
type Status struct {
	system *query.System
	cache  storage.Cache
	base   string
	log    logger.Logger
}

// NewStatus builds the status view against cfg.APIBase with the configured
// query cache.
func NewStatus(cfg *config.Config, log logger.Logger) (*Status, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	client, cache, err := newUpstream(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Status{
		system: query.NewSystem(client, cache, cfg.QueryStaleTime).WithLogger(log),
		cache:  cache,
		base:   client.BaseURL(),
		log:    log,
	}, nil
}

// Load runs both system queries. Failures leave the slot empty and are
// logged; Load itself never fails.
func (s *Status) Load(ctx context.Context) StatusView {
	view := StatusView{
		Title:     headerTitle,
		Subtitle:  headerSubtitle,
		APIBase:   s.base,
		Monsters:  monsterListLabel,
		Encounter: encounterLabel,
	}

	if health, err := s.system.Health(ctx); err != nil {
		s.warn("health", err)
	} else {
		view.Health = &health
	}
	if version, err := s.system.Version(ctx); err != nil {
		s.warn("version", err)
	} else {
		view.Version = &version
	}
	return view
}

// Render writes the view in the requested format.
func (s *Status) Render(w io.Writer, view StatusView, format string) error {
	return render(w, format, view, func() error {
		_, err := fmt.Fprintf(w, "%s\n%s\n%s\n\nMonsters: %s\nEncounter: %s\n",
			view.Title, view.Subtitle, view.APILine(), view.Monsters, view.Encounter)
		return err
	})
}

// Close releases the query cache.
func (s *Status) Close() error {
	if s == nil || s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

func (s *Status) warn(query string, err error) {
	fields := map[string]any{
		"query": query,
		"error": err.Error(),
	}
	if code := apiclient.StatusCode(err); code != 0 {
		fields["http_status"] = code
	}
	s.log.WarnObj("system query failed", "query_error", fields)
}

// newUpstream builds the API client and the query cache shared by the
// status and catalog views.
func newUpstream(cfg *config.Config, log logger.Logger) (*apiclient.Client, storage.Cache, error) {
	cache, err := storage.NewCache(cfg.CacheType, cfg.BBoltPath, storage.Options{
		DefaultTTL:      cfg.QueryStaleTime,
		CleanupInterval: cfg.CacheCleanupInterval,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init query cache: %w", err)
	}
	log.DebugObj("query cache initialized", "cache_config", map[string]any{
		"type":          cfg.CacheType,
		"path":          cfg.BBoltPath,
		"stale_seconds": int(cfg.QueryStaleTime.Seconds()),
	})

	client := apiclient.New(apiclient.Config{
		BaseURL:   cfg.APIBase,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.AppName,
	})
	return client, cache, nil
}

// render encodes v as JSON or YAML, or calls text for the plain format.
func render(w io.Writer, format string, v any, text func() error) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return text()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/arcanalyse/encounter-builder/internal/config"
	"github.com/arcanalyse/encounter-builder/internal/domain"
	"github.com/arcanalyse/encounter-builder/internal/logger"
	"github.com/arcanalyse/encounter-builder/internal/storage"
	"github.com/arcanalyse/encounter-builder/pkg/query"
)

// EncounterXP is the XP breakdown of a set of monsters by challenge rating.
type EncounterXP struct {
	Monsters []domain.CRToXP `json:"monsters" yaml:"monsters"`
	Total    int             `json:"total_xp" yaml:"total_xp"`
}

// Catalog answers reference data questions through the query cache.
type Catalog struct {
	catalog *query.Catalog
	cache   storage.Cache
	log     logger.Logger
}

// NewCatalog builds the reference data view against cfg.APIBase.
func NewCatalog(cfg *config.Config, log logger.Logger) (*Catalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	client, cache, err := newUpstream(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		catalog: query.NewCatalog(client, cache, cfg.QueryStaleTime).WithLogger(log),
		cache:   cache,
		log:     log,
	}, nil
}

// Lookups lists one page of a lookup table.
func (c *Catalog) Lookups(ctx context.Context, table string, page query.Page) ([]domain.Lookup, error) {
	rows, err := c.catalog.Lookups(ctx, table, page)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return rows, nil
}

// EncounterXP resolves every rating and sums the XP. The first rating the
// API does not know fails the whole call.
func (c *Catalog) EncounterXP(ctx context.Context, ratings []string) (EncounterXP, error) {
	out := EncounterXP{Monsters: make([]domain.CRToXP, 0, len(ratings))}
	for _, cr := range ratings {
		row, err := c.catalog.XP(ctx, cr)
		if err != nil {
			return EncounterXP{}, fmt.Errorf("challenge rating %q: %w", cr, err)
		}
		out.Monsters = append(out.Monsters, row)
		out.Total += row.XP
	}
	c.log.DebugObj("encounter xp resolved", "encounter_xp", map[string]any{
		"monsters": len(out.Monsters),
		"total_xp": out.Total,
	})
	return out, nil
}

// RenderLookups writes rows as an id/code/name table or as JSON/YAML.
func RenderLookups(w io.Writer, rows []domain.Lookup, format string) error {
	return render(w, format, rows, func() error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCODE\tNAME")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Code, r.Name)
		}
		return tw.Flush()
	})
}

// RenderEncounterXP writes one line per monster and the total.
func RenderEncounterXP(w io.Writer, xp EncounterXP, format string) error {
	return render(w, format, xp, func() error {
		for _, m := range xp.Monsters {
			if _, err := fmt.Fprintf(w, "CR %s: %d XP\n", m.ChallengeRating, m.XP); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "Total: %d XP\n", xp.Total)
		return err
	})
}

// Close releases the query cache.
func (c *Catalog) Close() error {
	if c == nil || c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

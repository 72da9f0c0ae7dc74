package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/arcanalyse/encounter-builder/internal/domain"
	"github.com/arcanalyse/encounter-builder/internal/logger"
	"github.com/arcanalyse/encounter-builder/internal/storage"
	"github.com/arcanalyse/encounter-builder/pkg/apiclient"
)

const (
	SourcesPath = "/api/v1/sources"
	CRToXPPath  = "/api/v1/cr-to-xp"

	DefaultLimit = 100
	MaxLimit     = 500
)

var (
	// ErrUnknownTable is returned for a table name outside domain.LookupTables.
	ErrUnknownTable = errors.New("unknown lookup table")
	// ErrInvalidPage is returned for limit/offset values the API rejects.
	ErrInvalidPage = errors.New("invalid page")
	// ErrInvalidChallengeRating is returned for ratings that are not a
	// non-negative decimal or fraction.
	ErrInvalidChallengeRating = errors.New("invalid challenge rating")
)

// Page selects a window of a list endpoint. A zero Limit means DefaultLimit.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() (Page, error) {
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return p, fmt.Errorf("%w: limit %d not in 1..%d", ErrInvalidPage, p.Limit, MaxLimit)
	}
	if p.Offset < 0 {
		return p, fmt.Errorf("%w: offset %d is negative", ErrInvalidPage, p.Offset)
	}
	return p, nil
}

func (p Page) encode() string {
	return url.Values{
		"limit":  {strconv.Itoa(p.Limit)},
		"offset": {strconv.Itoa(p.Offset)},
	}.Encode()
}

// Catalog exposes the reference data queries: lookup tables, sources and
// the challenge rating to XP table.
type Catalog struct {
	upstream
}

// NewCatalog builds the reference data queries. cache may be nil.
func NewCatalog(client *apiclient.Client, cache storage.Cache, staleTime time.Duration) *Catalog {
	return &Catalog{upstream{client: client, cache: cache, staleTime: staleTime}}
}

// WithLogger returns a copy of c reporting cache failures to log.
func (c *Catalog) WithLogger(log logger.Logger) *Catalog {
	cp := *c
	cp.log = log
	return &cp
}

// LookupsQuery lists one page of a lookup table.
func (c *Catalog) LookupsQuery(table string, page Page) (Query[[]domain.Lookup], error) {
	if !domain.IsLookupTable(table) {
		return Query[[]domain.Lookup]{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	page, err := page.normalize()
	if err != nil {
		return Query[[]domain.Lookup]{}, err
	}
	qs := page.encode()
	return newQuery[[]domain.Lookup](c.upstream, c.key("lookups", table, qs), "/api/v1/"+table+"?"+qs), nil
}

// Lookups runs LookupsQuery.
func (c *Catalog) Lookups(ctx context.Context, table string, page Page) ([]domain.Lookup, error) {
	q, err := c.LookupsQuery(table, page)
	if err != nil {
		return nil, err
	}
	return q.Run(ctx, c.cache)
}

// LookupQuery fetches a single row of a lookup table by id.
func (c *Catalog) LookupQuery(table string, id int) (Query[domain.Lookup], error) {
	if !domain.IsLookupTable(table) {
		return Query[domain.Lookup]{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	sid := strconv.Itoa(id)
	return newQuery[domain.Lookup](c.upstream, c.key("lookups", table, sid), "/api/v1/"+table+"/"+sid), nil
}

// Lookup runs LookupQuery. An unknown id yields a 404 *apiclient.ResponseError.
func (c *Catalog) Lookup(ctx context.Context, table string, id int) (domain.Lookup, error) {
	q, err := c.LookupQuery(table, id)
	if err != nil {
		return domain.Lookup{}, err
	}
	return q.Run(ctx, c.cache)
}

// SourcesQuery lists one page of sources.
func (c *Catalog) SourcesQuery(page Page) (Query[[]domain.Source], error) {
	page, err := page.normalize()
	if err != nil {
		return Query[[]domain.Source]{}, err
	}
	qs := page.encode()
	return newQuery[[]domain.Source](c.upstream, c.key("sources", qs), SourcesPath+"?"+qs), nil
}

// Sources runs SourcesQuery.
func (c *Catalog) Sources(ctx context.Context, page Page) ([]domain.Source, error) {
	q, err := c.SourcesQuery(page)
	if err != nil {
		return nil, err
	}
	return q.Run(ctx, c.cache)
}

// Source fetches a single source by id.
func (c *Catalog) Source(ctx context.Context, id int) (domain.Source, error) {
	sid := strconv.Itoa(id)
	return newQuery[domain.Source](c.upstream, c.key("sources", sid), SourcesPath+"/"+sid).Run(ctx, c.cache)
}

// CRToXPQuery lists one page of the challenge rating table.
func (c *Catalog) CRToXPQuery(page Page) (Query[[]domain.CRToXP], error) {
	page, err := page.normalize()
	if err != nil {
		return Query[[]domain.CRToXP]{}, err
	}
	qs := page.encode()
	return newQuery[[]domain.CRToXP](c.upstream, c.key("cr-to-xp", qs), CRToXPPath+"?"+qs), nil
}

// CRToXPTable runs CRToXPQuery.
func (c *Catalog) CRToXPTable(ctx context.Context, page Page) ([]domain.CRToXP, error) {
	q, err := c.CRToXPQuery(page)
	if err != nil {
		return nil, err
	}
	return q.Run(ctx, c.cache)
}

// XPQuery fetches the row of one challenge rating. cr may be a decimal
// ("0.25") or a fraction ("1/4").
func (c *Catalog) XPQuery(cr string) (Query[domain.CRToXP], error) {
	dec, err := ParseChallengeRating(cr)
	if err != nil {
		return Query[domain.CRToXP]{}, err
	}
	return newQuery[domain.CRToXP](c.upstream, c.key("cr-to-xp", dec), CRToXPPath+"/"+dec), nil
}

// XP runs XPQuery.
func (c *Catalog) XP(ctx context.Context, cr string) (domain.CRToXP, error) {
	q, err := c.XPQuery(cr)
	if err != nil {
		return domain.CRToXP{}, err
	}
	return q.Run(ctx, c.cache)
}

// ParseChallengeRating normalizes "1/8", "0.125" or "2" to the shortest
// decimal form ("0.125", "2").
func ParseChallengeRating(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	var v float64
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, nerr := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, derr := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if nerr != nil || derr != nil || d == 0 {
			return "", fmt.Errorf("%w: %q", ErrInvalidChallengeRating, raw)
		}
		v = n / d
	} else {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidChallengeRating, raw)
		}
		v = f
	}
	if v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChallengeRating, raw)
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

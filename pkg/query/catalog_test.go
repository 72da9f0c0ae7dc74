package query

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/arcanalyse/encounter-builder/internal/mockapi"
	"github.com/arcanalyse/encounter-builder/internal/mockapi/mockapitest"
	"github.com/arcanalyse/encounter-builder/pkg/apiclient"
)

func newCatalog(t *testing.T) (*Catalog, *mockapi.API, string) {
	t.Helper()
	srv, api := mockapitest.NewServer()
	t.Cleanup(srv.Close)
	return NewCatalog(apiclient.New(apiclient.Config{BaseURL: srv.URL}), newMemoryCache(t), time.Minute), api, srv.URL
}

func TestCatalogListsLookupPages(t *testing.T) {
	cat, api, base := newCatalog(t)
	ctx := context.Background()

	sizes, err := cat.Lookups(ctx, "sizes", Page{})
	if err != nil || len(sizes) != 6 || sizes[0].Code != "tiny" {
		t.Fatalf("sizes = %+v err %v", sizes, err)
	}
	page, err := cat.Lookups(ctx, "sizes", Page{Limit: 2, Offset: 4})
	if err != nil || len(page) != 2 || page[1].Code != "gargantuan" {
		t.Fatalf("page = %+v err %v", page, err)
	}
	if _, err := cat.Lookups(ctx, "sizes", Page{}); err != nil {
		t.Fatalf("cached sizes: %v", err)
	}
	if hits := api.Hits(mockapi.LookupRoute("sizes")); hits != 2 {
		t.Fatalf("expected 2 upstream calls (one per page), got %d", hits)
	}

	q, _ := cat.LookupsQuery("sizes", Page{Limit: 2, Offset: 4})
	if key := q.CacheKey(); key != "lookups/sizes/limit=2&offset=4/"+base {
		t.Fatalf("cache key = %q", key)
	}
}

func TestCatalogRejectsBadArguments(t *testing.T) {
	cat, api, _ := newCatalog(t)
	ctx := context.Background()

	if _, err := cat.Lookups(ctx, "monsters", Page{}); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if _, err := cat.Lookup(ctx, "sources", 1); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("sources is not an id/code/name table, got %v", err)
	}
	for _, p := range []Page{{Limit: -1}, {Limit: MaxLimit + 1}, {Offset: -3}} {
		if _, err := cat.CRToXPTable(ctx, p); !errors.Is(err, ErrInvalidPage) {
			t.Fatalf("page %+v: expected ErrInvalidPage, got %v", p, err)
		}
	}
	if _, err := cat.XP(ctx, "one"); !errors.Is(err, ErrInvalidChallengeRating) {
		t.Fatalf("expected ErrInvalidChallengeRating, got %v", err)
	}
	if api.Hits(mockapi.CRToXPRoute) != 0 || api.Hits(mockapi.CRToXPItemRoute) != 0 {
		t.Fatalf("invalid arguments must not reach the API")
	}
}

func TestCatalogItemsAndNotFound(t *testing.T) {
	cat, _, _ := newCatalog(t)
	ctx := context.Background()

	dragon, err := cat.Lookup(ctx, "creature-types", 5)
	if err != nil || dragon.Name != "Dragon" {
		t.Fatalf("creature type 5 = %+v err %v", dragon, err)
	}
	src, err := cat.Source(ctx, 1)
	if err != nil || src.Code != "srd" || src.ReleaseYear == nil || *src.ReleaseYear != 2016 {
		t.Fatalf("source 1 = %+v err %v", src, err)
	}
	sources, err := cat.Sources(ctx, Page{})
	if err != nil || len(sources) != 1 {
		t.Fatalf("sources = %+v err %v", sources, err)
	}

	_, err = cat.Lookup(ctx, "sizes", 42)
	re, ok := apiclient.AsResponseError(err)
	if !ok || re.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if body, _ := re.Body.(map[string]any); body["detail"] != "Not found" {
		t.Fatalf("unexpected body %#v", re.Body)
	}
}

func TestCatalogChallengeRatings(t *testing.T) {
	cat, api, _ := newCatalog(t)
	ctx := context.Background()

	for cr, want := range map[string]int{"1/8": 25, "0.125": 25, "1/2": 100, "5": 1800, "30": 155000} {
		row, err := cat.XP(ctx, cr)
		if err != nil || row.XP != want {
			t.Fatalf("XP(%s) = %+v err %v", cr, row, err)
		}
	}
	if hits := api.Hits(mockapi.CRToXPItemRoute); hits != 4 {
		t.Fatalf("1/8 and 0.125 should share a cache entry, got %d calls", hits)
	}

	table, err := cat.CRToXPTable(ctx, Page{Limit: 3, Offset: 1})
	if err != nil || len(table) != 3 || table[0].XP != 25 {
		t.Fatalf("table = %+v err %v", table, err)
	}
	if _, err := cat.XP(ctx, "31"); apiclient.StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown rating, got %v", err)
	}
}

func TestParseChallengeRating(t *testing.T) {
	cases := map[string]string{
		"1/8":   "0.125",
		" 1/4 ": "0.25",
		"0.500": "0.5",
		"2":     "2",
		"0":     "0",
	}
	for in, want := range cases {
		got, err := ParseChallengeRating(in)
		if err != nil || got != want {
			t.Fatalf("ParseChallengeRating(%q) = %q err %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "-1", "1/0", "x/2", "NaN", "Inf"} {
		if _, err := ParseChallengeRating(bad); !errors.Is(err, ErrInvalidChallengeRating) {
			t.Fatalf("ParseChallengeRating(%q) expected error, got %v", bad, err)
		}
	}
}

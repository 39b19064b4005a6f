package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const productJSON = `{
	"product": {
		"asin": "B0C1HOUSE",
		"title": "The Housemaid",
		"authors": [{"name": "Freida McFadden"}],
		"narrators": [{"name": "Lauryn Allman"}],
		"publisher_summary": "A psychological thriller.",
		"runtime_length_min": 577,
		"release_date": "2022-04-26",
		"product_images": {"500": "https://img/cover.jpg"}
	}
}`

func TestGetBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1.0/catalog/products/B0C1HOUSE" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(productJSON))
	}))
	defer srv.Close()

	c := New("us")
	c.setBaseURL(srv.URL)

	book, err := c.GetBook(context.Background(), "B0C1HOUSE")
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if book.Title != "The Housemaid" {
		t.Errorf("title = %q", book.Title)
	}
	if book.Author != "Freida McFadden" {
		t.Errorf("author = %q", book.Author)
	}
	if book.Narrator != "Lauryn Allman" {
		t.Errorf("narrator = %q", book.Narrator)
	}
	if book.DurationMinutes != 577 {
		t.Errorf("duration = %d", book.DurationMinutes)
	}
	if book.CoverURL != "https://img/cover.jpg" {
		t.Errorf("cover = %q", book.CoverURL)
	}
	if book.ReleaseDate.Year() != 2022 {
		t.Errorf("release date = %v", book.ReleaseDate)
	}

	work := book.Work()
	if work.ASIN != "B0C1HOUSE" || work.DurationMinutes != 577 || work.ReleaseDate != "2022-04-26" {
		t.Errorf("work = %+v", work)
	}
}

func TestGetBookCaches(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(productJSON))
	}))
	defer srv.Close()

	c := New("us")
	c.setBaseURL(srv.URL)

	for i := 0; i < 3; i++ {
		if _, err := c.GetBook(context.Background(), "B0C1HOUSE"); err != nil {
			t.Fatalf("GetBook: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
}

func TestGetBookNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New("us")
	c.setBaseURL(srv.URL)
	if _, err := c.GetBook(context.Background(), "NOPE"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestNewUnknownRegionFallsBackToUS(t *testing.T) {
	c := New("zz")
	if c == nil {
		t.Fatalf("client should build for unknown region")
	}
}

package cache

import (
	"testing"
	"time"

	"github.com/Ahsanalpha/google-rich-results-automation/models"
)

func TestKey(t *testing.T) {
	base := Key("https://example.com", "png", models.Region{Width: 1280, Height: 900})

	if got := Key("https://example.com", "png", models.Region{Width: 1280, Height: 900}); got != base {
		t.Errorf("identical inputs produced different keys")
	}
	if got := Key("https://example.com", "jpeg", models.Region{Width: 1280, Height: 900}); got == base {
		t.Errorf("format change did not change the key")
	}
	if got := Key("https://example.com", "png", models.Region{Width: 800, Height: 600}); got == base {
		t.Errorf("region change did not change the key")
	}
	if got := Key("https://example.org", "png", models.Region{Width: 1280, Height: 900}); got == base {
		t.Errorf("url change did not change the key")
	}
}

func TestGetSet(t *testing.T) {
	c := New(10)
	key := Key("https://example.com", "png", models.Region{Width: 1280, Height: 900})
	resp := &models.CheckResponse{Success: true, URL: "https://example.com"}

	if _, hit := c.Get(key, 60000); hit {
		t.Fatalf("unexpected hit on empty cache")
	}

	c.Set(key, resp)

	got, hit := c.Get(key, 60000)
	if !hit {
		t.Fatalf("expected hit after Set")
	}
	if got.URL != resp.URL {
		t.Errorf("got URL %q, want %q", got.URL, resp.URL)
	}

	// maxAge <= 0 disables lookup entirely.
	if _, hit := c.Get(key, 0); hit {
		t.Errorf("maxAge 0 must bypass the cache")
	}
}

func TestGetExpiry(t *testing.T) {
	c := New(10)
	key := Key("https://example.com", "png", models.Region{})
	c.Set(key, &models.CheckResponse{Success: true})

	time.Sleep(5 * time.Millisecond)

	if _, hit := c.Get(key, 1); hit {
		t.Errorf("entry older than maxAge must miss")
	}
	if _, hit := c.Get(key, 60000); !hit {
		t.Errorf("entry younger than maxAge must hit")
	}
}

func TestSetEvictsAtCapacity(t *testing.T) {
	c := New(2)
	keys := []string{
		Key("https://a.example", "png", models.Region{}),
		Key("https://b.example", "png", models.Region{}),
		Key("https://c.example", "png", models.Region{}),
	}
	for _, k := range keys {
		c.Set(k, &models.CheckResponse{Success: true})
	}

	hits := 0
	for _, k := range keys {
		if _, hit := c.Get(k, 60000); hit {
			hits++
		}
	}
	if hits != 2 {
		t.Errorf("expected exactly 2 entries to survive eviction, got %d", hits)
	}
}

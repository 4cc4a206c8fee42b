package memorystore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cidali/bookstore/entitlements"
)

func TestIssueThenValidate(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Issue(ctx, "Born_Too_Soon.pdf", 30*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(id) != 64 {
		t.Fatalf("expected 64-char hex token, got %d chars: %q", len(id), id)
	}
	if err := s.Validate(ctx, id, "Born_Too_Soon.pdf"); err != nil {
		t.Fatalf("validate fresh token: %v", err)
	}
}

func TestValidateIsNotSingleUse(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.Issue(ctx, "Born_Too_Soon.pdf", 30*time.Minute)
	for i := 0; i < 5; i++ {
		if err := s.Validate(ctx, id, "Born_Too_Soon.pdf"); err != nil {
			t.Fatalf("validate attempt %d: %v", i+1, err)
		}
	}
}

func TestValidateContentMismatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.Issue(ctx, "Born_Too_Soon.pdf", 30*time.Minute)
	err := s.Validate(ctx, id, "Other_Book.pdf")
	if !errors.Is(err, entitlements.ErrContentMismatch) {
		t.Fatalf("expected ErrContentMismatch, got %v", err)
	}
	// The mismatch must not have consumed the token.
	if err := s.Validate(ctx, id, "Born_Too_Soon.pdf"); err != nil {
		t.Fatalf("validate after mismatch: %v", err)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	s := New()
	err := s.Validate(context.Background(), "deadbeef", "Born_Too_Soon.pdf")
	if !errors.Is(err, entitlements.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateExpiryEvicts(t *testing.T) {
	s := New()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	id, _ := s.Issue(ctx, "Born_Too_Soon.pdf", 30*time.Minute)

	now = now.Add(30*time.Minute + time.Second)
	err := s.Validate(ctx, id, "Born_Too_Soon.pdf")
	if !errors.Is(err, entitlements.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	// Eviction happened: the second look sees nothing.
	err = s.Validate(ctx, id, "Born_Too_Soon.pdf")
	if !errors.Is(err, entitlements.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after eviction, got %v", err)
	}
}

func TestValidateAtExactExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	id, _ := s.Issue(ctx, "Born_Too_Soon.pdf", 30*time.Minute)
	now = now.Add(30 * time.Minute)
	if err := s.Validate(ctx, id, "Born_Too_Soon.pdf"); !errors.Is(err, entitlements.ErrExpired) {
		t.Fatalf("t == expiresAt must be expired, got %v", err)
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	s := New()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	expired, _ := s.Issue(ctx, "Born_Too_Soon.pdf", time.Minute)
	live, _ := s.Issue(ctx, "Born_Too_Soon.pdf", time.Hour)

	now = now.Add(2 * time.Minute)
	removed, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if err := s.Validate(ctx, expired, "Born_Too_Soon.pdf"); !errors.Is(err, entitlements.ErrNotFound) {
		t.Fatalf("swept token should be NotFound, got %v", err)
	}
	if err := s.Validate(ctx, live, "Born_Too_Soon.pdf"); err != nil {
		t.Fatalf("live token must survive sweep: %v", err)
	}
}

func TestConcurrentIssueValidate(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Issue(ctx, "Born_Too_Soon.pdf", time.Minute)
			if err != nil {
				t.Errorf("issue: %v", err)
				return
			}
			if err := s.Validate(ctx, id, "Born_Too_Soon.pdf"); err != nil {
				t.Errorf("validate: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := s.Len(); got != 50 {
		t.Fatalf("expected 50 live tokens, got %d", got)
	}
}

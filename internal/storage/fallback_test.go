package storage

import (
	"context"
	"errors"
	"testing"

	"schedbot/pkg/logx"
)

// flakyStore fails every call while broken is set, delegating to an inner
// in-memory map otherwise.
type flakyStore struct {
	broken bool
	chats  []int64
	groups map[int64]string
}

var errStoreDown = errors.New("store down")

func newFlaky() *flakyStore { return &flakyStore{groups: map[int64]string{}} }

func (s *flakyStore) GetGroup(_ context.Context, chatID int64) (string, bool, error) {
	if s.broken {
		return "", false, errStoreDown
	}
	gid, ok := s.groups[chatID]
	return gid, ok, nil
}

func (s *flakyStore) SetGroup(_ context.Context, chatID int64, gid string) error {
	if s.broken {
		return errStoreDown
	}
	s.groups[chatID] = gid
	return nil
}

func (s *flakyStore) Subscribers(_ context.Context) ([]int64, error) {
	if s.broken {
		return nil, errStoreDown
	}
	return append([]int64(nil), s.chats...), nil
}

func (s *flakyStore) AddSubscriber(_ context.Context, chatID int64) (bool, error) {
	if s.broken {
		return false, errStoreDown
	}
	s.chats = append(s.chats, chatID)
	return true, nil
}

func (s *flakyStore) RemoveSubscriber(_ context.Context, chatID int64) (bool, error) {
	if s.broken {
		return false, errStoreDown
	}
	return true, nil
}

func (s *flakyStore) Close() error { return nil }

func TestFallbackServesCachedSubscribers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inner := newFlaky()
	inner.chats = []int64{1, 2}

	f := NewFallback(inner, logx.Nop())

	// Healthy read populates the cache.
	subs, err := f.Subscribers(ctx)
	if err != nil || len(subs) != 2 {
		t.Fatalf("Subscribers = %v, %v", subs, err)
	}

	inner.broken = true
	subs, err = f.Subscribers(ctx)
	if err != nil {
		t.Fatalf("fallback must not surface the backend error, got %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected cached list of 2, got %v", subs)
	}
}

func TestFallbackServesCachedGroup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inner := newFlaky()
	inner.groups[5] = "104"

	f := NewFallback(inner, logx.Nop())
	if gid, ok, _ := f.GetGroup(ctx, 5); !ok || gid != "104" {
		t.Fatalf("healthy GetGroup = (%q, %v)", gid, ok)
	}

	inner.broken = true
	gid, ok, err := f.GetGroup(ctx, 5)
	if err != nil {
		t.Fatalf("fallback must not surface the backend error, got %v", err)
	}
	if !ok || gid != "104" {
		t.Fatalf("cached GetGroup = (%q, %v)", gid, ok)
	}
}

func TestFallbackWritesSurviveOutage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inner := newFlaky()
	inner.broken = true

	f := NewFallback(inner, logx.Nop())
	if err := f.SetGroup(ctx, 9, "202"); err != nil {
		t.Fatalf("SetGroup during outage must degrade, got %v", err)
	}
	if added, err := f.AddSubscriber(ctx, 9); err != nil || !added {
		t.Fatalf("AddSubscriber during outage = (%v, %v)", added, err)
	}

	if gid, ok, _ := f.GetGroup(ctx, 9); !ok || gid != "202" {
		t.Fatalf("in-memory copy missing after degraded write: (%q, %v)", gid, ok)
	}
	subs, _ := f.Subscribers(ctx)
	if len(subs) != 1 || subs[0] != 9 {
		t.Fatalf("cached subscribers = %v", subs)
	}
}

package storage

import (
	"context"
	"slices"
	"sync"

	"schedbot/pkg/logx"
)

// Fallback wraps a Store with an in-memory last-known copy. Backend read
// failures degrade to the cached state and write failures are applied to the
// cache anyway, so a transiently unavailable store never fails a
// diff-and-notify cycle. Every failure is logged.
type Fallback struct {
	inner Store
	log   logx.Logger

	mu     sync.Mutex
	chats  []int64
	groups map[int64]string
}

// NewFallback wraps inner. The cache starts warm: an initial Subscribers
// read is attempted immediately so a later outage still has data to serve.
func NewFallback(inner Store, log logx.Logger) *Fallback {
	f := &Fallback{inner: inner, log: log, groups: map[int64]string{}}
	if inner != nil {
		if chats, err := inner.Subscribers(context.Background()); err == nil {
			f.chats = chats
		}
	}
	return f
}

func (f *Fallback) GetGroup(ctx context.Context, chatID int64) (string, bool, error) {
	gid, ok, err := f.inner.GetGroup(ctx, chatID)
	if err != nil {
		f.log.Warn("group read failed; using cached assignment", logx.Int64("chat_id", chatID), logx.Err(err))
		f.mu.Lock()
		gid, ok = f.groups[chatID]
		f.mu.Unlock()
		return gid, ok, nil
	}
	if ok {
		f.mu.Lock()
		f.groups[chatID] = gid
		f.mu.Unlock()
	}
	return gid, ok, nil
}

func (f *Fallback) SetGroup(ctx context.Context, chatID int64, gid string) error {
	f.mu.Lock()
	f.groups[chatID] = gid
	f.mu.Unlock()
	if err := f.inner.SetGroup(ctx, chatID, gid); err != nil {
		f.log.Warn("group write failed; kept in memory", logx.Int64("chat_id", chatID), logx.Err(err))
	}
	return nil
}

func (f *Fallback) Subscribers(ctx context.Context) ([]int64, error) {
	chats, err := f.inner.Subscribers(ctx)
	if err != nil {
		f.log.Warn("subscriber read failed; using cached list", logx.Err(err))
		f.mu.Lock()
		cached := slices.Clone(f.chats)
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Lock()
	f.chats = slices.Clone(chats)
	f.mu.Unlock()
	return chats, nil
}

func (f *Fallback) AddSubscriber(ctx context.Context, chatID int64) (bool, error) {
	f.mu.Lock()
	added := !slices.Contains(f.chats, chatID)
	if added {
		f.chats = append(f.chats, chatID)
	}
	f.mu.Unlock()

	ok, err := f.inner.AddSubscriber(ctx, chatID)
	if err != nil {
		f.log.Warn("subscribe write failed; kept in memory", logx.Int64("chat_id", chatID), logx.Err(err))
		return added, nil
	}
	return ok, nil
}

func (f *Fallback) RemoveSubscriber(ctx context.Context, chatID int64) (bool, error) {
	f.mu.Lock()
	i := slices.Index(f.chats, chatID)
	existed := i >= 0
	if existed {
		f.chats = slices.Delete(f.chats, i, i+1)
	}
	f.mu.Unlock()

	ok, err := f.inner.RemoveSubscriber(ctx, chatID)
	if err != nil {
		f.log.Warn("unsubscribe write failed; kept in memory", logx.Int64("chat_id", chatID), logx.Err(err))
		return existed, nil
	}
	return ok, nil
}

func (f *Fallback) Close() error { return f.inner.Close() }

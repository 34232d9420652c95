package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"schedbot/internal/schedule"
	"schedbot/pkg/logx"
)

// memStore is a minimal in-memory storage.Store for orchestrator tests.
type memStore struct {
	chats  []int64
	groups map[int64]string
}

func (s *memStore) GetGroup(_ context.Context, chatID int64) (string, bool, error) {
	gid, ok := s.groups[chatID]
	return gid, ok, nil
}
func (s *memStore) SetGroup(_ context.Context, chatID int64, gid string) error {
	s.groups[chatID] = gid
	return nil
}
func (s *memStore) Subscribers(_ context.Context) ([]int64, error) {
	return append([]int64(nil), s.chats...), nil
}
func (s *memStore) AddSubscriber(_ context.Context, chatID int64) (bool, error) { return true, nil }
func (s *memStore) RemoveSubscriber(_ context.Context, chatID int64) (bool, error) {
	return true, nil
}
func (s *memStore) Close() error { return nil }

type recordingSender struct {
	sent map[int64][]string
	fail map[int64]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[int64][]string{}, fail: map[int64]bool{}}
}

func (s *recordingSender) Send(_ context.Context, chatID int64, text string) error {
	if s.fail[chatID] {
		return errors.New("telegram unavailable")
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

func newTestOrchestrator(store *memStore, sender Sender) *Orchestrator {
	o := New(Config{
		Enabled:    true,
		FutureOnly: true,
		Limit:      12,
		Location:   time.UTC,
		RatePerSec: 1000,
	}, store, sender, logx.Nop())
	// Fixed clock before all test entries.
	o.now = func() time.Time { return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC) }
	return o
}

func futureEntry(room string) schedule.Entry {
	return schedule.Entry{
		Date: "2025-09-08", Start: "10:00", End: "11:30",
		Title: "История [Сем]", Room: room, Instructor: "Иванов И.",
	}
}

func TestNotifyEndToEndAddition(t *testing.T) {
	t.Parallel()
	store := &memStore{
		chats:  []int64{10, 20, 30},
		groups: map[int64]string{10: "104", 20: "202", 30: "104"},
	}
	sender := newRecordingSender()
	o := newTestOrchestrator(store, sender)

	e := futureEntry("B1")
	sent, notified := o.NotifyIfChanged(context.Background(), "104", nil, []schedule.Entry{e})
	if !notified {
		t.Fatal("expected a broadcast")
	}
	if sent != 2 {
		t.Fatalf("expected 2 deliveries (matching group only), got %d", sent)
	}
	if len(sender.sent[20]) != 0 {
		t.Fatal("subscriber of another group must not be notified")
	}
	msg := sender.sent[10][0]
	if !strings.Contains(msg, "+1") {
		t.Fatalf("summary must contain +1:\n%s", msg)
	}
	if !strings.HasPrefix(msg, "104: обновление расписания") {
		t.Fatalf("summary must lead with the group header:\n%s", msg)
	}
}

func TestNotifyNoChange(t *testing.T) {
	t.Parallel()
	store := &memStore{chats: []int64{10}, groups: map[int64]string{10: "104"}}
	sender := newRecordingSender()
	o := newTestOrchestrator(store, sender)

	e := futureEntry("B1")
	sent, notified := o.NotifyIfChanged(context.Background(), "104", []schedule.Entry{e}, []schedule.Entry{e})
	if notified || sent != 0 {
		t.Fatalf("identical snapshots must not notify, got sent=%d notified=%v", sent, notified)
	}
}

func TestNotifyCosmeticOnlySuppressed(t *testing.T) {
	t.Parallel()
	store := &memStore{chats: []int64{10}, groups: map[int64]string{10: "104"}}
	sender := newRecordingSender()
	o := newTestOrchestrator(store, sender)

	old := futureEntry("г264*")
	new := futureEntry("г264")
	sent, notified := o.NotifyIfChanged(context.Background(), "104",
		[]schedule.Entry{old}, []schedule.Entry{new})
	if notified || sent != 0 {
		t.Fatalf("cosmetic-only change must be invisible, got sent=%d notified=%v", sent, notified)
	}
}

func TestNotifyPastOnlyChangesSuppressed(t *testing.T) {
	t.Parallel()
	store := &memStore{chats: []int64{10}, groups: map[int64]string{10: "104"}}
	sender := newRecordingSender()
	o := newTestOrchestrator(store, sender)

	past := futureEntry("B1")
	past.Date = "2025-08-20" // before the fixed clock
	sent, notified := o.NotifyIfChanged(context.Background(), "104", nil, []schedule.Entry{past})
	if notified || sent != 0 {
		t.Fatalf("past-only change must not notify, got sent=%d notified=%v", sent, notified)
	}
}

func TestNotifyDeliveryFailureDoesNotAbort(t *testing.T) {
	t.Parallel()
	store := &memStore{
		chats:  []int64{1, 2, 3},
		groups: map[int64]string{1: "104", 2: "104", 3: "104"},
	}
	sender := newRecordingSender()
	sender.fail[2] = true
	o := newTestOrchestrator(store, sender)

	sent, notified := o.NotifyIfChanged(context.Background(), "104", nil,
		[]schedule.Entry{futureEntry("B1")})
	if !notified {
		t.Fatal("expected a broadcast")
	}
	if sent != 2 {
		t.Fatalf("one failing subscriber must not abort the rest, sent=%d", sent)
	}
	if len(sender.sent[3]) != 1 {
		t.Fatal("subscriber after the failing one was skipped")
	}
}

func TestNotifyDisabledAndDryRun(t *testing.T) {
	t.Parallel()
	store := &memStore{chats: []int64{1}, groups: map[int64]string{1: "104"}}
	entries := []schedule.Entry{futureEntry("B1")}

	disabled := New(Config{Enabled: false, Location: time.UTC}, store, newRecordingSender(), logx.Nop())
	if sent, notified := disabled.NotifyIfChanged(context.Background(), "104", nil, entries); sent != 0 || notified {
		t.Fatal("disabled orchestrator must skip entirely")
	}

	dry := New(Config{Enabled: true, DryRun: true, Location: time.UTC}, store, newRecordingSender(), logx.Nop())
	if sent, notified := dry.NotifyIfChanged(context.Background(), "104", nil, entries); sent != 0 || notified {
		t.Fatal("dry-run orchestrator must skip entirely")
	}
}

func TestNotifyUnscopedWhenFutureOnlyDisabled(t *testing.T) {
	t.Parallel()
	store := &memStore{chats: []int64{1}, groups: map[int64]string{1: "104"}}
	sender := newRecordingSender()
	o := New(Config{Enabled: true, FutureOnly: false, Location: time.UTC, RatePerSec: 1000},
		store, sender, logx.Nop())
	o.now = func() time.Time { return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC) }

	past := futureEntry("B1")
	past.Date = "2025-08-20"
	sent, notified := o.NotifyIfChanged(context.Background(), "104", nil, []schedule.Entry{past})
	if !notified || sent != 1 {
		t.Fatalf("unscoped mode must notify about past entries too, sent=%d notified=%v", sent, notified)
	}
}

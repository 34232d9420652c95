package storage

import (
	"context"
	"path/filepath"
	"testing"

	"schedbot/pkg/logx"
)

func openFileStore(t *testing.T, path string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestFileStoreSubscribers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openFileStore(t, filepath.Join(t.TempDir(), "state.json"))

	added, err := st.AddSubscriber(ctx, 100)
	if err != nil || !added {
		t.Fatalf("AddSubscriber first = (%v, %v), want (true, nil)", added, err)
	}
	added, err = st.AddSubscriber(ctx, 100)
	if err != nil || added {
		t.Fatalf("AddSubscriber repeat = (%v, %v), want (false, nil)", added, err)
	}

	subs, err := st.Subscribers(ctx)
	if err != nil || len(subs) != 1 || subs[0] != 100 {
		t.Fatalf("Subscribers = %v, %v", subs, err)
	}

	existed, err := st.RemoveSubscriber(ctx, 100)
	if err != nil || !existed {
		t.Fatalf("RemoveSubscriber = (%v, %v), want (true, nil)", existed, err)
	}
	existed, err = st.RemoveSubscriber(ctx, 100)
	if err != nil || existed {
		t.Fatalf("RemoveSubscriber repeat = (%v, %v), want (false, nil)", existed, err)
	}
}

func TestFileStoreGroups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openFileStore(t, filepath.Join(t.TempDir(), "state.json"))

	if _, ok, err := st.GetGroup(ctx, 42); err != nil || ok {
		t.Fatalf("GetGroup on empty store = ok=%v err=%v", ok, err)
	}
	if err := st.SetGroup(ctx, 42, "104"); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}
	gid, ok, err := st.GetGroup(ctx, 42)
	if err != nil || !ok || gid != "104" {
		t.Fatalf("GetGroup = (%q, %v, %v)", gid, ok, err)
	}
	// Reassignment overwrites.
	if err := st.SetGroup(ctx, 42, "202"); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}
	if gid, _, _ := st.GetGroup(ctx, 42); gid != "202" {
		t.Fatalf("GetGroup after reassign = %q", gid)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	st := openFileStore(t, path)
	if _, err := st.AddSubscriber(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if err := st.SetGroup(ctx, 7, "104"); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	st2 := openFileStore(t, path)
	subs, err := st2.Subscribers(ctx)
	if err != nil || len(subs) != 1 || subs[0] != 7 {
		t.Fatalf("Subscribers after reopen = %v, %v", subs, err)
	}
	if gid, ok, _ := st2.GetGroup(ctx, 7); !ok || gid != "104" {
		t.Fatalf("GetGroup after reopen = (%q, %v)", gid, ok)
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = (%v, %v), want (nil, nil)", driver, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

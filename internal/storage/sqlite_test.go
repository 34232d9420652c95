package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"schedbot/pkg/logx"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "schedbot.db")

	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	added, err := st.AddSubscriber(ctx, 1)
	if err != nil || !added {
		t.Fatalf("AddSubscriber = (%v, %v)", added, err)
	}
	if added, _ := st.AddSubscriber(ctx, 1); added {
		t.Fatal("repeat AddSubscriber must report false")
	}
	if _, err := st.AddSubscriber(ctx, 2); err != nil {
		t.Fatal(err)
	}

	subs, err := st.Subscribers(ctx)
	if err != nil || len(subs) != 2 {
		t.Fatalf("Subscribers = %v, %v", subs, err)
	}

	if err := st.SetGroup(ctx, 1, "104"); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}
	if err := st.SetGroup(ctx, 1, "202"); err != nil {
		t.Fatalf("SetGroup upsert: %v", err)
	}
	gid, ok, err := st.GetGroup(ctx, 1)
	if err != nil || !ok || gid != "202" {
		t.Fatalf("GetGroup = (%q, %v, %v)", gid, ok, err)
	}
	if _, ok, _ := st.GetGroup(ctx, 99); ok {
		t.Fatal("unassigned chat must report ok=false")
	}

	existed, err := st.RemoveSubscriber(ctx, 1)
	if err != nil || !existed {
		t.Fatalf("RemoveSubscriber = (%v, %v)", existed, err)
	}
	if existed, _ := st.RemoveSubscriber(ctx, 1); existed {
		t.Fatal("repeat RemoveSubscriber must report false")
	}
}

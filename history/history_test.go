package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Southclaws/fault/ftag"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLatest(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, err := s.Record(ctx, "a.json", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(ctx, "a.json", []byte("two")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(ctx, "b.json", []byte("other")); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Latest(ctx, "a.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(snap.Data) != "two" {
		t.Errorf("latest = %q, want two", snap.Data)
	}
}

func TestLatestMissing(t *testing.T) {
	s := openTest(t)
	_, err := s.Latest(context.Background(), "nothing.json")
	if err == nil {
		t.Fatal("expected error")
	}
	if ftag.Get(err) != ftag.NotFound {
		t.Errorf("tag = %v, want NotFound", ftag.Get(err))
	}
}

func TestListAndPrune(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	for _, d := range []string{"1", "2", "3", "4"} {
		if _, err := s.Record(ctx, "song.json", []byte(d)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx, "song.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 4 {
		t.Fatalf("listed %d snapshots, want 4", len(list))
	}
	if list[0].ID < list[3].ID {
		t.Error("list not newest first")
	}

	n, err := s.Prune(ctx, "song.json", 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	snap, _ := s.Latest(ctx, "song.json")
	if string(snap.Data) != "4" {
		t.Errorf("prune dropped the newest snapshot, latest = %q", snap.Data)
	}

	if _, err := s.Prune(ctx, "song.json", -1); err == nil {
		t.Error("negative keep accepted")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Record(context.Background(), "x", []byte("y")); err != nil {
		t.Fatal(err)
	}
}

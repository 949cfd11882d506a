package localfs

import (
	"context"
	"testing"
)

func TestStorageRoundTripAndList(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	files := map[string][]byte{
		"corpus/leave.json":  []byte(`[]`),
		"corpus/pay.json":    []byte(`[]`),
		"uploads/notes.json": []byte(`[]`),
	}
	for key, data := range files {
		if err := storage.Put(ctx, key, data); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
	}

	keys, err := storage.List(ctx, "corpus/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "corpus/leave.json" || keys[1] != "corpus/pay.json" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	data, err := storage.Get(ctx, "corpus/leave.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != `[]` {
		t.Fatalf("unexpected data: %q", data)
	}
}

func TestStorageGetMissingKey(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := storage.Get(context.Background(), "corpus/missing.json"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

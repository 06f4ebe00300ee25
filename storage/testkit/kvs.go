package testkit

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"xdao.co/ovm/storage"
)

// NewStore constructs a fresh, empty KeyValueStore for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.KeyValueStore

// RunKVConformance checks a backend against the storage.KeyValueStore contract.
func RunKVConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte("decision bytes")

		if err := s.Put([]byte("k"), want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get([]byte("k"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch: got %q want %q", got, want)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put([]byte("k"), []byte("one")); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := s.Put([]byte("k"), []byte("two")); err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		got, err := s.Get([]byte("k"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "two" {
			t.Fatalf("last write did not win: got %q", got)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Has([]byte("missing"))
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if ok {
			t.Fatalf("Has returned true for missing key")
		}
		if _, err := s.Get([]byte("missing")); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if err := s.Put([]byte("missing"), []byte("v")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		ok, err = s.Has([]byte("missing"))
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if !ok {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put([]byte("k"), []byte("v")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := s.Delete([]byte("k")); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get([]byte("k")); !storage.IsNotFound(err) {
			t.Fatalf("Get after Delete: got err=%v want ErrNotFound", err)
		}
		if err := s.Delete([]byte("never-written")); err != nil {
			t.Fatalf("Delete of absent key failed: %v", err)
		}
	})

	t.Run("BatchAppliesAllOps", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put([]byte("gone"), []byte("x")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		err := s.Batch([]storage.Op{
			storage.PutOp([]byte("a"), []byte("1")),
			storage.PutOp([]byte("b"), []byte("2")),
			storage.DeleteOp([]byte("gone")),
		})
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		for k, want := range map[string]string{"a": "1", "b": "2"} {
			got, err := s.Get([]byte(k))
			if err != nil {
				t.Fatalf("Get(%s) failed: %v", k, err)
			}
			if string(got) != want {
				t.Fatalf("Get(%s) = %q want %q", k, got, want)
			}
		}
		if _, err := s.Get([]byte("gone")); !storage.IsNotFound(err) {
			t.Fatalf("Batch delete not applied: err=%v", err)
		}
	})

	t.Run("IterateIsOrderedAndPrefixBounded", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"p/3", "p/1", "q/1", "p/2", "o/9"} {
			if err := s.Put([]byte(k), []byte("v"+k)); err != nil {
				t.Fatalf("Put(%s) failed: %v", k, err)
			}
		}
		var visited []string
		got, err := s.Iterate([]byte("p/"), func(k, _ []byte) bool {
			visited = append(visited, string(k))
			return true
		})
		if err != nil {
			t.Fatalf("Iterate failed: %v", err)
		}
		want := []string{"p/1", "p/2", "p/3"}
		if fmt.Sprint(visited) != fmt.Sprint(want) {
			t.Fatalf("visited %v want %v", visited, want)
		}
		if len(got) != len(want) {
			t.Fatalf("collected %d entries want %d", len(got), len(want))
		}
		for i, kv := range got {
			if string(kv.Key) != want[i] || string(kv.Value) != "v"+want[i] {
				t.Fatalf("entry %d = %q:%q", i, kv.Key, kv.Value)
			}
		}
	})

	t.Run("IterateStopsWhenVisitReturnsFalse", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"n/1", "n/2", "n/3"} {
			if err := s.Put([]byte(k), []byte("v")); err != nil {
				t.Fatalf("Put(%s) failed: %v", k, err)
			}
		}
		calls := 0
		got, err := s.Iterate([]byte("n/"), func(k, _ []byte) bool {
			calls++
			return string(k) != "n/2"
		})
		if err != nil {
			t.Fatalf("Iterate failed: %v", err)
		}
		if calls != 2 {
			t.Fatalf("visit called %d times want 2", calls)
		}
		if len(got) != 1 || string(got[0].Key) != "n/1" {
			t.Fatalf("collected %v want only n/1", got)
		}
	})

	t.Run("BucketsAreIsolated", func(t *testing.T) {
		s := newStore(t)
		a := storage.NewBucket(s, []byte("decisions/a/"))
		b := storage.NewBucket(s, []byte("decisions/b/"))
		if err := a.Put([]byte("id"), []byte("from-a")); err != nil {
			t.Fatalf("a.Put failed: %v", err)
		}
		if _, err := b.Get([]byte("id")); !storage.IsNotFound(err) {
			t.Fatalf("bucket b observed bucket a key: err=%v", err)
		}
		got, err := a.Iterate(nil, func(_, _ []byte) bool { return true })
		if err != nil {
			t.Fatalf("a.Iterate failed: %v", err)
		}
		if len(got) != 1 || string(got[0].Key) != "id" {
			t.Fatalf("bucket iteration did not strip prefix: %v", got)
		}
	})

	t.Run("ReturnedBytesAreOwned", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put([]byte("k"), []byte("abc")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get([]byte("k"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		got[0] = 'z'
		again, err := s.Get([]byte("k"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(again) != "abc" {
			t.Fatalf("stored value aliased caller buffer: %q", again)
		}
	})

	t.Run("ConcurrentWriters", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := s.Put([]byte(fmt.Sprintf("c/%02d", i)), []byte("v")); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent Put failed: %v", err)
		}
		got, err := s.Iterate([]byte("c/"), func(_, _ []byte) bool { return true })
		if err != nil {
			t.Fatalf("Iterate failed: %v", err)
		}
		if len(got) != 16 {
			t.Fatalf("got %d entries want 16", len(got))
		}
	})
}

// Package storetest checks LogStore implementations against the contract.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/store"
)

func record(client string, n int) []byte {
	return []byte(fmt.Sprintf(`{"client_id":%q,"n":%d}`, client, n))
}

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) store.LogStore) {
	t.Run("TailNewestFirst", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)
		defer st.Close()

		for i := 1; i <= 8; i++ {
			if err := st.Append(ctx, "ada", record("ada", i)); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
		got, err := st.Tail(ctx, "ada", 5)
		if err != nil {
			t.Fatalf("Tail: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("Tail returned %d records, want 5", len(got))
		}
		for i, rec := range got {
			if want := string(record("ada", 8-i)); string(rec) != want {
				t.Errorf("record %d = %s, want %s", i, rec, want)
			}
		}
		all, err := st.Tail(ctx, "ada", 0)
		if err != nil {
			t.Fatalf("Tail all: %v", err)
		}
		if len(all) != 8 {
			t.Errorf("Tail(0) returned %d records, want 8", len(all))
		}
	})

	t.Run("UnknownClient", func(t *testing.T) {
		st := open(t)
		defer st.Close()
		got, err := st.Tail(context.Background(), "nobody", 3)
		if err != nil {
			t.Fatalf("Tail: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no records, got %d", len(got))
		}
	})

	t.Run("RejectsNonJSON", func(t *testing.T) {
		st := open(t)
		defer st.Close()
		err := st.Append(context.Background(), "ada", []byte("not json"))
		if !errors.Is(err, internalerr.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ClientsAndRewrite", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)
		defer st.Close()
		for _, c := range []string{"zoe", "ada", "host/1"} {
			for i := 1; i <= 3; i++ {
				if err := st.Append(ctx, c, record(c, i)); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}
		}
		clients, err := st.Clients(ctx)
		if err != nil {
			t.Fatalf("Clients: %v", err)
		}
		if fmt.Sprint(clients) != "[ada host/1 zoe]" {
			t.Errorf("Clients = %v", clients)
		}

		if err := st.Rewrite(ctx, "zoe", [][]byte{record("zoe", 3)}); err != nil {
			t.Fatalf("Rewrite: %v", err)
		}
		got, err := st.Tail(ctx, "zoe", 0)
		if err != nil {
			t.Fatalf("Tail: %v", err)
		}
		if len(got) != 1 || string(got[0]) != string(record("zoe", 3)) {
			t.Errorf("after rewrite: %q", got)
		}
		if err := st.Append(ctx, "zoe", record("zoe", 4)); err != nil {
			t.Fatalf("Append after rewrite: %v", err)
		}
		got, _ = st.Tail(ctx, "zoe", 1)
		if len(got) != 1 || string(got[0]) != string(record("zoe", 4)) {
			t.Errorf("append after rewrite: %q", got)
		}
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)
		defer st.Close()
		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 25; i++ {
					if err := st.Append(ctx, "shared", record("shared", w*100+i)); err != nil {
						t.Errorf("Append: %v", err)
					}
				}
			}(w)
		}
		wg.Wait()
		got, err := st.Tail(ctx, "shared", 0)
		if err != nil {
			t.Fatalf("Tail: %v", err)
		}
		if len(got) != 100 {
			t.Errorf("got %d records, want 100", len(got))
		}
	})
}

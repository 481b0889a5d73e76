package store

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strconv"
	"sync"
	"testing"

	"github.com/m3rciful/cpgamebot/internal/game"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stores := map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		db := 0
		if v := os.Getenv("REDIS_DB"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				db = n
			}
		}
		rs, err := OpenRedis(context.Background(), RedisOptions{
			Addr:      addr,
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        db,
			KeyPrefix: "cpgame:test:" + t.Name() + ":",
		})
		if err != nil {
			t.Fatalf("open redis: %v", err)
		}
		stores["redis"] = rs
	}
	t.Cleanup(func() {
		for _, st := range stores {
			_ = st.Close()
		}
	})
	return stores
}

func TestStoreRoundTrip(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const chat = int64(-100123)

			got, err := st.Load(ctx, chat)
			if err != nil {
				t.Fatal(err)
			}
			if got.Phase() != game.PhaseIdle || got.LastSubmitterID != nil {
				t.Fatalf("fresh chat not idle: %+v", got)
			}

			saved, err := st.Update(ctx, chat, func(s game.State) (game.State, error) {
				return game.Start(s, 42)
			})
			if err != nil {
				t.Fatal(err)
			}
			saved, v := game.Submit(saved, game.Submission{Attachments: 1, SubmitterID: 7, Number: &[]int{42}[0]})
			if v.Kind != game.VerdictAccepted {
				t.Fatalf("verdict %+v", v)
			}
			if _, err := st.Update(ctx, chat, func(game.State) (game.State, error) { return saved, nil }); err != nil {
				t.Fatal(err)
			}

			got, err = st.Load(ctx, chat)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Active || *got.Start != 42 || *got.Number != 43 || *got.LastSubmitterID != 7 {
				t.Fatalf("loaded %+v", got)
			}

			// clearing start/number must persist as NULL
			if _, err := st.Update(ctx, chat, func(s game.State) (game.State, error) {
				next, _, err := game.End(s)
				return next, err
			}); err != nil {
				t.Fatal(err)
			}
			got, err = st.Load(ctx, chat)
			if err != nil {
				t.Fatal(err)
			}
			if got != (game.State{}) {
				t.Fatalf("expected cleared state, got %+v", got)
			}
		})
	}
}

func TestStoreUpdateAbort(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const chat = int64(5)
			if _, err := st.Update(ctx, chat, func(s game.State) (game.State, error) {
				return game.Start(s, 100)
			}); err != nil {
				t.Fatal(err)
			}

			boom := errors.New("boom")
			_, err := st.Update(ctx, chat, func(game.State) (game.State, error) {
				return game.State{}, boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			got, err := st.Load(ctx, chat)
			if err != nil {
				t.Fatal(err)
			}
			if *got.Number != 100 {
				t.Fatalf("aborted update was written: %+v", got)
			}
		})
	}
}

func TestStoreConcurrentIncrements(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const chat = int64(77)
			if _, err := st.Update(ctx, chat, func(s game.State) (game.State, error) {
				return game.Start(s, 10)
			}); err != nil {
				t.Fatal(err)
			}

			var wg sync.WaitGroup
			const workers = 8
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(author int64) {
					defer wg.Done()
					_, err := st.Update(ctx, chat, func(s game.State) (game.State, error) {
						n := *s.Number
						next, _ := game.Submit(s, game.Submission{Attachments: 1, SubmitterID: author, Number: &n})
						next.LastSubmitterID = nil
						return next, nil
					})
					if err != nil {
						errs <- err
					}
				}(int64(i))
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if !errors.Is(err, ErrConflict) {
					t.Fatal(err)
				}
			}
			got, err := st.Load(ctx, chat)
			if err != nil {
				t.Fatal(err)
			}
			if name != "redis" && *got.Number != 10+workers {
				t.Fatalf("number = %d, want %d", *got.Number, 10+workers)
			}
		})
	}
}

func TestNormalizeBackend(t *testing.T) {
	cases := map[string]string{
		"":           BackendPostgres,
		"PostgreSQL": BackendPostgres,
		"sqlite3":    BackendSQLite,
		" redis ":    BackendRedis,
		"memory":     BackendMemory,
	}
	for in, want := range cases {
		got, err := NormalizeBackend(in)
		if err != nil || got != want {
			t.Errorf("NormalizeBackend(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := NormalizeBackend("mongo"); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestOpenMemoryAndPostgresWithoutDB(t *testing.T) {
	st, err := Open(context.Background(), Config{Backend: "memory"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	if _, err := Open(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected postgres without db to fail")
	}
}

func hashFields(t *testing.T, enc map[string]any) map[string]string {
	t.Helper()
	fields := make(map[string]string, len(enc))
	for k, v := range enc {
		str, ok := v.(string)
		if !ok {
			t.Fatalf("field %s encoded as %T", k, v)
		}
		fields[k] = str
	}
	return fields
}

func TestRedisHashCodec(t *testing.T) {
	ip := func(n int) *int { return &n }
	uid := int64(99)
	tests := []struct {
		name string
		in   game.State
	}{
		{"idle", game.State{}},
		{"active", game.State{Active: true, Start: ip(10), Number: ip(11), LastSubmitterID: &uid}},
		{"active without submitter", game.State{Active: true, Start: ip(42), Number: ip(42)}},
		{"paused", game.State{Start: ip(10), Number: ip(500), LastSubmitterID: &uid}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := decodeHash(hashFields(t, encodeHash(tt.in)))
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(out, tt.in) {
				t.Fatalf("decoded %+v, want %+v", out, tt.in)
			}
			if out.Phase() != tt.in.Phase() {
				t.Fatalf("phase = %s, want %s", out.Phase(), tt.in.Phase())
			}
		})
	}
}

func TestRedisHashDecodeEmptyIsIdle(t *testing.T) {
	st, err := decodeHash(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Phase() != game.PhaseIdle {
		t.Fatalf("phase = %s", st.Phase())
	}
}

func TestRedisHashDecodeBadFields(t *testing.T) {
	tests := map[string]map[string]string{
		"active":    {fieldActive: "yes please"},
		"start":     {fieldActive: "true", fieldStart: "ten"},
		"number":    {fieldNumber: "x"},
		"submitter": {fieldLast: "1.5"},
	}
	for name, fields := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeHash(fields); err == nil {
				t.Fatalf("expected %v to fail", fields)
			}
		})
	}
}

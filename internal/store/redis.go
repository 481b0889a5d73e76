package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/m3rciful/cpgamebot/internal/game"
)

const (
	fieldActive = "active"
	fieldStart  = "start"
	fieldNumber = "number"
	fieldLast   = "last_submitter_id"

	redisMaxRetries = 5
)

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps each chat in a hash and updates it with WATCH/MULTI.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("store: redis addr is required")
	}
	client := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "cpgame:chat:"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(chatID int64) string {
	return s.prefix + strconv.FormatInt(chatID, 10)
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, chatID int64) (game.State, error) {
	fields, err := s.client.HGetAll(ctx, s.key(chatID)).Result()
	if err != nil {
		return game.State{}, fmt.Errorf("store: load chat %d: %w", chatID, err)
	}
	return decodeHash(fields)
}

// Update implements Store with optimistic locking, retrying on conflicts.
func (s *RedisStore) Update(ctx context.Context, chatID int64, fn UpdateFunc) (game.State, error) {
	key := s.key(chatID)
	var next game.State
	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		cur, err := decodeHash(fields)
		if err != nil {
			return err
		}
		next, err = fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			p.HSet(ctx, key, encodeHash(next))
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return game.State{}, err
	}
	return game.State{}, fmt.Errorf("%w: chat %d", ErrConflict, chatID)
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeHash(st game.State) map[string]any {
	out := map[string]any{fieldActive: strconv.FormatBool(st.Active)}
	if st.Start != nil {
		out[fieldStart] = strconv.Itoa(*st.Start)
	}
	if st.Number != nil {
		out[fieldNumber] = strconv.Itoa(*st.Number)
	}
	if st.LastSubmitterID != nil {
		out[fieldLast] = strconv.FormatInt(*st.LastSubmitterID, 10)
	}
	return out
}

func decodeHash(fields map[string]string) (game.State, error) {
	var st game.State
	if v, ok := fields[fieldActive]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return st, fmt.Errorf("store: bad %s %q: %w", fieldActive, v, err)
		}
		st.Active = b
	}
	for _, f := range []struct {
		name string
		dst  **int
	}{{fieldStart, &st.Start}, {fieldNumber, &st.Number}} {
		v, ok := fields[f.name]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return st, fmt.Errorf("store: bad %s %q: %w", f.name, v, err)
		}
		*f.dst = &n
	}
	if v, ok := fields[fieldLast]; ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return st, fmt.Errorf("store: bad %s %q: %w", fieldLast, v, err)
		}
		st.LastSubmitterID = &id
	}
	return st, nil
}

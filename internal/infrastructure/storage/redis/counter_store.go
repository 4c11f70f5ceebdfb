// Package redis implements counter storage on Redis hashes.
//
// Each counter is a hash at <prefix><name> with fields value, created_at and
// updated_at. Increments rely on HINCRBY, which Redis executes atomically.
package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	coreseq "medseq/internal/core/sequence"
	"medseq/pkg/logger"
)

// DefaultKeyPrefix namespaces counter keys.
const DefaultKeyPrefix = "medseq:counter:"

const (
	fieldValue     = "value"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// raiseScript sets value to max(value, ARGV[1]) and returns the stored value.
// Values beyond 2^53 lose precision in Lua arithmetic.
var raiseScript = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'value')
redis.call('HSETNX', KEYS[1], 'created_at', ARGV[2])
if (not cur) or tonumber(ARGV[1]) > tonumber(cur) then
	redis.call('HSET', KEYS[1], 'value', ARGV[1], 'updated_at', ARGV[2])
	return tonumber(ARGV[1])
end
return tonumber(cur)
`)

// CounterStore implements coreseq.Store on Redis.
type CounterStore struct {
	client    goredis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

var (
	_ coreseq.Store  = (*CounterStore)(nil)
	_ coreseq.Pinger = (*CounterStore)(nil)
)

// NewCounterStore creates a store using client. An empty keyPrefix selects DefaultKeyPrefix.
func NewCounterStore(client goredis.UniversalClient, keyPrefix string) *CounterStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &CounterStore{
		client:    client,
		keyPrefix: keyPrefix,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewClient parses url, connects and pings the server.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := goredis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info(ctx, "redis connection established", "addr", opt.Addr, "db", opt.DB)
	return rc, nil
}

func (s *CounterStore) key(name string) string {
	return s.keyPrefix + name
}

func (s *CounterStore) timestamp() string {
	return s.now().Format(time.RFC3339Nano)
}

// IncrementAndGet implements coreseq.Store.
func (s *CounterStore) IncrementAndGet(ctx context.Context, name string) (int64, error) {
	key, ts := s.key(name), s.timestamp()

	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldCreatedAt, ts)
		incr = pipe.HIncrBy(ctx, key, fieldValue, 1)
		pipe.HSet(ctx, key, fieldUpdatedAt, ts)
		return nil
	})
	if err != nil {
		return 0, classify("increment", name, err)
	}
	return incr.Val(), nil
}

// SetValue implements coreseq.Store.
func (s *CounterStore) SetValue(ctx context.Context, name string, value int64) error {
	if value < 0 {
		return fmt.Errorf("%w: counter value must be non-negative, got %d", coreseq.ErrInvalidInput, value)
	}
	key, ts := s.key(name), s.timestamp()

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldCreatedAt, ts)
		pipe.HSet(ctx, key, fieldValue, value, fieldUpdatedAt, ts)
		return nil
	})
	return classify("set", name, err)
}

// RaiseValue implements coreseq.Store.
func (s *CounterStore) RaiseValue(ctx context.Context, name string, floor int64) (int64, error) {
	if floor < 0 {
		floor = 0
	}
	v, err := raiseScript.Run(ctx, s.client, []string{s.key(name)}, floor, s.timestamp()).Int64()
	if err != nil {
		return 0, classify("raise", name, err)
	}
	return v, nil
}

// GetValue implements coreseq.Store.
func (s *CounterStore) GetValue(ctx context.Context, name string) (int64, error) {
	v, err := s.client.HGet(ctx, s.key(name), fieldValue).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, classify("get", name, err)
	}
	return v, nil
}

// Get implements coreseq.Store.
func (s *CounterStore) Get(ctx context.Context, name string) (*coreseq.Counter, error) {
	fields, err := s.client.HGetAll(ctx, s.key(name)).Result()
	if err != nil {
		return nil, classify("get", name, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", coreseq.ErrCounterNotFound, name)
	}
	return decodeCounter(name, fields)
}

// List implements coreseq.Store.
func (s *CounterStore) List(ctx context.Context) ([]coreseq.Counter, error) {
	counters := make([]coreseq.Counter, 0)

	iter := s.client.Scan(ctx, 0, escapeGlob(s.keyPrefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		name := strings.TrimPrefix(iter.Val(), s.keyPrefix)
		c, err := s.Get(ctx, name)
		if errors.Is(err, coreseq.ErrCounterNotFound) {
			// deleted between SCAN and HGETALL
			continue
		}
		if isWrongType(err) {
			logger.Warn(ctx, "skipping non-counter key under counter prefix", "key", iter.Val())
			continue
		}
		if err != nil {
			return nil, err
		}
		counters = append(counters, *c)
	}
	if err := iter.Err(); err != nil {
		return nil, classify("list", "*", err)
	}

	sort.Slice(counters, func(i, j int) bool { return counters[i].Name < counters[j].Name })
	return counters, nil
}

// Ping implements coreseq.Pinger.
func (s *CounterStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeCounter(name string, fields map[string]string) (*coreseq.Counter, error) {
	c := &coreseq.Counter{Name: name}

	value, err := strconv.ParseInt(fields[fieldValue], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode counter %q: %w", name, err)
	}
	c.Value = value

	// Timestamps are informational; a malformed one leaves the zero time.
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	return c, nil
}

// globEscaper quotes the characters SCAN MATCH treats as pattern syntax.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

func isWrongType(err error) bool {
	var redisErr goredis.Error
	return errors.As(err, &redisErr) && strings.HasPrefix(redisErr.Error(), "WRONGTYPE")
}

// Reply prefixes Redis uses for conditions that clear on their own.
var transientReplies = []string{"LOADING", "BUSY", "TRYAGAIN", "CLUSTERDOWN", "MASTERDOWN"}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, prefix := range transientReplies {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

func classify(op, name string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return coreseq.NewTransient(op, name, err)
	}
	return fmt.Errorf("%s %q: %w", op, name, err)
}

// Package redis stores links as hashes and click events as sorted sets.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/repository"
)

const keyPrefix = "urlshortener:"

// createScript writes the hash only when the key is absent
var createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// incrementScript returns nil for a missing link instead of creating one
var incrementScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local n = redis.call('HINCRBY', KEYS[1], 'clickCount', ARGV[1])
redis.call('HSET', KEYS[1], 'lastClickedAt', ARGV[2])
return n
`)

// NewClient creates a Redis client and verifies the connection
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func linkKey(code string) string {
	return keyPrefix + "link:" + code
}

func clicksKey(code string) string {
	return keyPrefix + "clicks:" + code
}

type linkRepository struct {
	client goredis.UniversalClient
}

// NewLinkRepository creates a Redis-backed link repository
func NewLinkRepository(client goredis.UniversalClient) repository.LinkRepository {
	return &linkRepository{client: client}
}

func (r *linkRepository) Get(ctx context.Context, code string) (*domain.ShortLink, error) {
	fields, err := r.client.HGetAll(ctx, linkKey(code)).Result()
	if err != nil {
		return nil, domain.NewStorageError("get link", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrURLNotFound
	}

	link, err := decodeLink(code, fields)
	if err != nil {
		return nil, domain.NewStorageError("decode link", err)
	}
	return link, nil
}

func (r *linkRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	created, err := createScript.Run(ctx, r.client, []string{linkKey(link.Code)}, encodeLink(link)...).Int()
	if err != nil {
		return domain.NewStorageError("create link", err)
	}
	if created == 0 {
		return domain.ErrAliasTaken
	}
	return nil
}

func (r *linkRepository) IncrementClicks(ctx context.Context, code string, delta int64, at int64) (int64, error) {
	n, err := incrementScript.Run(ctx, r.client, []string{linkKey(code)}, delta, at).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, domain.ErrURLNotFound
	}
	if err != nil {
		return 0, domain.NewStorageError("increment clicks", err)
	}
	return n, nil
}

// encodeLink flattens a link into HSET field/value pairs.
// Optional fields are omitted rather than stored empty.
func encodeLink(link *domain.ShortLink) []interface{} {
	args := []interface{}{
		"originalUrl", link.OriginalURL,
		"ownerId", link.OwnerID,
		"createdAt", link.CreatedAt,
		"clickCount", link.ClickCount,
		"isCustomAlias", strconv.FormatBool(link.IsCustomAlias),
		"isSafe", strconv.FormatBool(link.IsSafe),
	}
	if link.ExpiresAt != nil {
		args = append(args, "expiresAt", *link.ExpiresAt)
	}
	if link.LastClickedAt != nil {
		args = append(args, "lastClickedAt", *link.LastClickedAt)
	}
	return args
}

func decodeLink(code string, fields map[string]string) (*domain.ShortLink, error) {
	link := &domain.ShortLink{
		Code:        code,
		OriginalURL: fields["originalUrl"],
		OwnerID:     fields["ownerId"],
	}

	var err error
	if link.CreatedAt, err = parseInt(fields, "createdAt"); err != nil {
		return nil, err
	}
	if link.ClickCount, err = parseInt(fields, "clickCount"); err != nil {
		return nil, err
	}
	if link.ExpiresAt, err = parseOptionalInt(fields, "expiresAt"); err != nil {
		return nil, err
	}
	if link.LastClickedAt, err = parseOptionalInt(fields, "lastClickedAt"); err != nil {
		return nil, err
	}
	link.IsCustomAlias = fields["isCustomAlias"] == "true"
	link.IsSafe = fields["isSafe"] == "true"

	return link, nil
}

func parseInt(fields map[string]string, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	return v, nil
}

func parseOptionalInt(fields map[string]string, name string) (*int64, error) {
	if _, ok := fields[name]; !ok {
		return nil, nil
	}
	v, err := parseInt(fields, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type clickRepository struct {
	client goredis.UniversalClient
}

// NewClickRepository creates a Redis-backed click repository
func NewClickRepository(client goredis.UniversalClient) repository.ClickRepository {
	return &clickRepository{client: client}
}

// Put adds the event to the code's sorted set, scored by timestamp.
// The set expires with its newest event.
func (r *clickRepository) Put(ctx context.Context, event *domain.ClickEvent) error {
	member, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode click: %w", err)
	}

	key := clicksKey(event.Code)
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAdd(ctx, key, goredis.Z{Score: float64(event.Timestamp), Member: member})
		pipe.PExpireAt(ctx, key, time.UnixMilli(event.ExpiresAt))
		return nil
	})
	if err != nil {
		return domain.NewStorageError("put click", err)
	}
	return nil
}

func (r *clickRepository) QueryByCode(ctx context.Context, code string, since int64) ([]domain.ClickEvent, error) {
	lower := "-inf"
	if since > 0 {
		lower = strconv.FormatInt(since, 10)
	}

	members, err := r.client.ZRangeByScore(ctx, clicksKey(code), &goredis.ZRangeBy{Min: lower, Max: "+inf"}).Result()
	if err != nil {
		return nil, domain.NewStorageError("query clicks", err)
	}

	events := make([]domain.ClickEvent, 0, len(members))
	for _, m := range members {
		var e domain.ClickEvent
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			return nil, domain.NewStorageError("decode click", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// NewStore wires both Redis repositories over client
func NewStore(client goredis.UniversalClient) *repository.Store {
	return &repository.Store{
		Links:  NewLinkRepository(client),
		Clicks: NewClickRepository(client),
		Close:  client.Close,
	}
}

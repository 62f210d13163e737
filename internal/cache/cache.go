// Package cache — кеш опубликованных версий flow в Redis.
//
// Опубликованная версия неизменяема, поэтому её содержимое кешируется
// без срока жизни. Указатель на последнюю версию живёт TTL и обновляется
// при публикации. Ошибки Redis не ломают чтение: запрос уходит
// в нижележащее хранилище.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/repo"
	"github.com/shaiso/Formflow/internal/telemetry"
)

const (
	defaultPrefix = "formflow:"
	defaultTTL    = 5 * time.Minute
)

// FlowCache — repo.FlowStore с кешированием опубликованных версий.
// Методы, которые кеш не затрагивает, делегируются встроенному хранилищу.
type FlowCache struct {
	repo.FlowStore

	client *backend.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ repo.FlowStore = (*FlowCache)(nil)

// Option настраивает FlowCache.
type Option func(*FlowCache)

// WithTTL задаёт срок жизни указателя на последнюю версию.
func WithTTL(ttl time.Duration) Option {
	return func(c *FlowCache) {
		c.ttl = ttl
	}
}

// WithPrefix задаёт префикс ключей.
func WithPrefix(prefix string) Option {
	return func(c *FlowCache) {
		c.prefix = prefix
	}
}

// WithLogger задаёт логгер для ошибок Redis.
func WithLogger(logger *slog.Logger) Option {
	return func(c *FlowCache) {
		c.logger = logger
	}
}

// NewClient создаёт клиента Redis.
func NewClient(addr, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// New оборачивает store кешем.
func New(store repo.FlowStore, client *backend.Client, opts ...Option) *FlowCache {
	c := &FlowCache{
		FlowStore: store,
		client:    client,
		prefix:    defaultPrefix,
		ttl:       defaultTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping проверяет соединение с Redis.
func (c *FlowCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close закрывает клиента Redis.
func (c *FlowCache) Close() error {
	return c.client.Close()
}

func (c *FlowCache) versionKey(flowID uuid.UUID, version int) string {
	return c.prefix + "version:" + flowID.String() + ":" + strconv.Itoa(version)
}

func (c *FlowCache) latestKey(flowID uuid.UUID) string {
	return c.prefix + "latest:" + flowID.String()
}

// GetVersion возвращает версию из кеша или из хранилища.
func (c *FlowCache) GetVersion(ctx context.Context, flowID uuid.UUID, version int) (*domain.FlowVersion, error) {
	if fv, ok := c.loadVersion(ctx, c.versionKey(flowID, version)); ok {
		return fv, nil
	}

	fv, err := c.FlowStore.GetVersion(ctx, flowID, version)
	if err != nil {
		return nil, err
	}
	c.storeVersion(ctx, fv)
	return fv, nil
}

// GetLatestVersion возвращает последнюю версию по кешированному указателю.
func (c *FlowCache) GetLatestVersion(ctx context.Context, flowID uuid.UUID) (*domain.FlowVersion, error) {
	version, err := c.client.Get(ctx, c.latestKey(flowID)).Int()
	switch {
	case err == nil:
		if fv, ok := c.loadVersion(ctx, c.versionKey(flowID, version)); ok {
			return fv, nil
		}
	case errors.Is(err, backend.Nil):
		telemetry.CacheLookups.WithLabelValues("miss").Inc()
	default:
		c.fail("get latest pointer", err)
	}

	fv, err := c.FlowStore.GetLatestVersion(ctx, flowID)
	if err != nil {
		return nil, err
	}
	c.storeVersion(ctx, fv)
	c.storeLatest(ctx, fv)
	return fv, nil
}

// Publish публикует версию и сразу кладёт её в кеш.
func (c *FlowCache) Publish(ctx context.Context, id uuid.UUID) (*domain.FlowVersion, error) {
	fv, err := c.FlowStore.Publish(ctx, id)
	if err != nil {
		return nil, err
	}
	c.storeVersion(ctx, fv)
	c.storeLatest(ctx, fv)
	return fv, nil
}

// Delete удаляет flow и все его ключи в кеше.
func (c *FlowCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.FlowStore.Delete(ctx, id); err != nil {
		return err
	}
	if err := c.Invalidate(ctx, id); err != nil {
		c.fail("invalidate", err)
	}
	return nil
}

// Invalidate удаляет из кеша указатель и все версии flow.
func (c *FlowCache) Invalidate(ctx context.Context, flowID uuid.UUID) error {
	keys := []string{c.latestKey(flowID)}

	iter := c.client.Scan(ctx, 0, c.prefix+"version:"+flowID.String()+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan version keys: %w", err)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

func (c *FlowCache) loadVersion(ctx context.Context, key string) (*domain.FlowVersion, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			telemetry.CacheLookups.WithLabelValues("miss").Inc()
		} else {
			c.fail("get version", err)
		}
		return nil, false
	}

	var fv domain.FlowVersion
	if err := json.Unmarshal(data, &fv); err != nil {
		c.fail("decode version", err)
		return nil, false
	}
	telemetry.CacheLookups.WithLabelValues("hit").Inc()
	return &fv, true
}

func (c *FlowCache) storeVersion(ctx context.Context, fv *domain.FlowVersion) {
	data, err := json.Marshal(fv)
	if err != nil {
		c.fail("encode version", err)
		return
	}
	if err := c.client.Set(ctx, c.versionKey(fv.FlowID, fv.Version), data, 0).Err(); err != nil {
		c.fail("set version", err)
	}
}

func (c *FlowCache) storeLatest(ctx context.Context, fv *domain.FlowVersion) {
	if err := c.client.Set(ctx, c.latestKey(fv.FlowID), fv.Version, c.ttl).Err(); err != nil {
		c.fail("set latest pointer", err)
	}
}

func (c *FlowCache) fail(op string, err error) {
	telemetry.CacheLookups.WithLabelValues("error").Inc()
	c.logger.Warn("flow cache error", "op", op, "error", err)
}

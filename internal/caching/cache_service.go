package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"packloop/internal/models"
)

type CacheService interface {
	// Catalog caching
	GetCatalogEntry(ctx context.Context, catalogID uuid.UUID) (*models.CatalogEntry, error)
	SetCatalogEntry(ctx context.Context, entry *models.CatalogEntry, ttl time.Duration) error
	DeleteCatalogEntry(ctx context.Context, catalogID uuid.UUID) error

	// Last-known-location caching
	GetLastLocation(ctx context.Context, instanceID uuid.UUID) (*models.LastLocation, error)
	SetLastLocation(ctx context.Context, last *models.LastLocation, ttl time.Duration) error
	DeleteLastLocation(ctx context.Context, instanceID uuid.UUID) error

	// Balance snapshot caching
	GetBalance(ctx context.Context, customerID uuid.UUID) (*models.BalanceRow, error)
	SetBalance(ctx context.Context, row *models.BalanceRow, ttl time.Duration) error
	DeleteBalance(ctx context.Context, customerID uuid.UUID) error

	// Cache invalidation
	InvalidateAll(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis:// and rediss:// forms as well as bare host:port
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func (r *redisCacheService) GetCatalogEntry(ctx context.Context, catalogID uuid.UUID) (*models.CatalogEntry, error) {
	key := fmt.Sprintf("packloop:catalog:%s", catalogID.String())
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var entry models.CatalogEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *redisCacheService) SetCatalogEntry(ctx context.Context, entry *models.CatalogEntry, ttl time.Duration) error {
	key := fmt.Sprintf("packloop:catalog:%s", entry.ID.String())
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteCatalogEntry(ctx context.Context, catalogID uuid.UUID) error {
	key := fmt.Sprintf("packloop:catalog:%s", catalogID.String())
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetLastLocation(ctx context.Context, instanceID uuid.UUID) (*models.LastLocation, error) {
	key := fmt.Sprintf("packloop:lastloc:%s", instanceID.String())
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var last models.LastLocation
	if err := json.Unmarshal(data, &last); err != nil {
		return nil, err
	}
	return &last, nil
}

func (r *redisCacheService) SetLastLocation(ctx context.Context, last *models.LastLocation, ttl time.Duration) error {
	key := fmt.Sprintf("packloop:lastloc:%s", last.InstanceID.String())
	data, err := json.Marshal(last)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteLastLocation(ctx context.Context, instanceID uuid.UUID) error {
	key := fmt.Sprintf("packloop:lastloc:%s", instanceID.String())
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetBalance(ctx context.Context, customerID uuid.UUID) (*models.BalanceRow, error) {
	key := fmt.Sprintf("packloop:balance:%s", customerID.String())
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var row models.BalanceRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *redisCacheService) SetBalance(ctx context.Context, row *models.BalanceRow, ttl time.Duration) error {
	key := fmt.Sprintf("packloop:balance:%s", row.CustomerID.String())
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteBalance(ctx context.Context, customerID uuid.UUID) error {
	key := fmt.Sprintf("packloop:balance:%s", customerID.String())
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) InvalidateAll(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, "packloop:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each entry under its own key plus a set index per kind.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) PutMint(ctx context.Context, m *MintHookMeta) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	return s.put(ctx, constants.RedisKeyMintPrefix, constants.RedisKeyMintIndex, m.Mint.String(), m)
}

func (s *RedisStore) GetMint(ctx context.Context, mint solana.PublicKey) (*MintHookMeta, error) {
	var m MintHookMeta
	if err := s.get(ctx, constants.RedisKeyMintPrefix+mint.String(), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *RedisStore) ListMints(ctx context.Context) ([]*MintHookMeta, error) {
	vals, err := s.list(ctx, constants.RedisKeyMintPrefix, constants.RedisKeyMintIndex)
	if err != nil {
		return nil, err
	}
	out := make([]*MintHookMeta, 0, len(vals))
	for _, v := range vals {
		var m MintHookMeta
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			continue
		}
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mint.String() < out[j].Mint.String() })
	return out, nil
}

func (s *RedisStore) DeleteMint(ctx context.Context, mint solana.PublicKey) error {
	return s.del(ctx, constants.RedisKeyMintPrefix, constants.RedisKeyMintIndex, mint.String())
}

func (s *RedisStore) PutPool(ctx context.Context, p *PoolDescriptor) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return s.put(ctx, constants.RedisKeyPoolPrefix, constants.RedisKeyPoolIndex, p.ID, p)
}

func (s *RedisStore) GetPool(ctx context.Context, key string) (*PoolDescriptor, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var p PoolDescriptor
	if err := s.get(ctx, constants.RedisKeyPoolPrefix+key, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RedisStore) ListPools(ctx context.Context) ([]*PoolDescriptor, error) {
	vals, err := s.list(ctx, constants.RedisKeyPoolPrefix, constants.RedisKeyPoolIndex)
	if err != nil {
		return nil, err
	}
	out := make([]*PoolDescriptor, 0, len(vals))
	for _, v := range vals {
		var p PoolDescriptor
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			continue
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RedisStore) DeletePool(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.del(ctx, constants.RedisKeyPoolPrefix, constants.RedisKeyPoolIndex, key)
}

func (s *RedisStore) Close() error {
	if c, ok := s.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *RedisStore) put(ctx context.Context, prefix, index, id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", id, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, prefix+id, b, 0)
	pipe.SAdd(ctx, index, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string, v any) error {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) list(ctx context.Context, prefix, index string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", index, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = prefix + id
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget %s: %w", index, err)
	}

	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out, nil
}

func (s *RedisStore) del(ctx context.Context, prefix, index, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, prefix+id)
	pipe.SRem(ctx, index, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

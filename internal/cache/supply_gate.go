package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"

	"github.com/redis/go-redis/v9"
)

// SupplyGate is the fast-path admission check in front of primary ticket
// sales: remaining supply lives in a Redis hash per event and is reserved
// atomically before the database transaction runs. A failed transaction
// must release its reservation.
type SupplyGate interface {
	// WarmUp loads (or resets) an event's remaining supply into Redis.
	WarmUp(ctx context.Context, event addressing.Address, remaining uint32) error
	// Remaining reads the gate's view of remaining supply.
	Remaining(ctx context.Context, event addressing.Address) (int64, error)
	// Reserve takes one unit of supply; false means sold out.
	Reserve(ctx context.Context, event addressing.Address) (bool, error)
	// Release returns one unit after a failed sale.
	Release(ctx context.Context, event addressing.Address) error
	// Drop removes the gate entry when an event is deleted.
	Drop(ctx context.Context, event addressing.Address) error
}

type RedisSupplyGate struct {
	client *redis.Client
}

func NewRedisSupplyGate(client *redis.Client) SupplyGate {
	return &RedisSupplyGate{
		client: client,
	}
}

func (g *RedisSupplyGate) key(event addressing.Address) string {
	return fmt.Sprintf("event:%s:supply", event)
}

func (g *RedisSupplyGate) WarmUp(ctx context.Context, event addressing.Address, remaining uint32) error {
	return g.client.HSet(ctx, g.key(event), "remaining", remaining).Err()
}

func (g *RedisSupplyGate) Remaining(ctx context.Context, event addressing.Address) (int64, error) {
	val, err := g.client.HGet(ctx, g.key(event), "remaining").Int64()
	if err == redis.Nil {
		return -1, apperrors.ErrEventNotFound
	}
	return val, err
}

func (g *RedisSupplyGate) Reserve(ctx context.Context, event addressing.Address) (bool, error) {
	script := `
		local key = KEYS[1]

		local remaining = redis.call('HGET', key, 'remaining')
		if not remaining then
			return -2 -- gate not warmed
		end

		if tonumber(remaining) < 1 then
			return -1 -- sold out
		end

		redis.call('HINCRBY', key, 'remaining', -1)
		return 1
	`

	result, err := g.client.Eval(ctx, script, []string{g.key(event)}).Result()
	if err != nil {
		return false, err
	}

	code, ok := result.(int64)
	if !ok {
		return false, errors.New("unexpected result")
	}

	switch code {
	case 1:
		return true, nil
	case -1:
		return false, apperrors.ErrSoldOut
	case -2:
		return false, apperrors.ErrEventNotFound
	default:
		return false, errors.New("unexpected result")
	}
}

func (g *RedisSupplyGate) Release(ctx context.Context, event addressing.Address) error {
	return g.client.HIncrBy(ctx, g.key(event), "remaining", 1).Err()
}

func (g *RedisSupplyGate) Drop(ctx context.Context, event addressing.Address) error {
	return g.client.Del(ctx, g.key(event)).Err()
}

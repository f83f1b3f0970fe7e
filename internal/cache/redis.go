package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prameswara/medibook/config"
	"github.com/prameswara/medibook/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	scheduleTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, scheduleTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		scheduleTTL: scheduleTTL,
	}
}

// AcquireSlotHold takes a short advisory hold on a concrete slot instance
// before the insert. The database's partial unique index stays
// authoritative; the hold only short-circuits the obvious collisions
// between the selection page and the confirmation page.
func (c *RedisCache) AcquireSlotHold(ctx context.Context, providerID int64, date time.Time, startMinute int, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, slotHoldKey(providerID, date, startMinute), "held", ttl).Result()
}

func (c *RedisCache) ReleaseSlotHold(ctx context.Context, providerID int64, date time.Time, startMinute int) error {
	return c.client.Del(ctx, slotHoldKey(providerID, date, startMinute)).Err()
}

func (c *RedisCache) GetSchedule(ctx context.Context, providerID int64) ([]domain.ScheduleSlot, error) {
	data, err := c.client.Get(ctx, scheduleKey(providerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var slots []domain.ScheduleSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *RedisCache) SetSchedule(ctx context.Context, providerID int64, slots []domain.ScheduleSlot) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKey(providerID), payload, c.scheduleTTL).Err()
}

// PutCheckoutState stores the transient flow record for one browsing
// session. It is advisory only and expires on its own.
func (c *RedisCache) PutCheckoutState(ctx context.Context, sessionKey string, state domain.CheckoutState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, checkoutKey(sessionKey), payload, ttl).Err()
}

// TakeCheckoutState reads and discards the flow record in one step, so a
// restarted flow never observes stale hand-off data.
func (c *RedisCache) TakeCheckoutState(ctx context.Context, sessionKey string) (*domain.CheckoutState, error) {
	data, err := c.client.GetDel(ctx, checkoutKey(sessionKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var state domain.CheckoutState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func slotHoldKey(providerID int64, date time.Time, startMinute int) string {
	return fmt.Sprintf("hold:provider:%d:%s:%d", providerID, date.Format("2006-01-02"), startMinute)
}

func scheduleKey(providerID int64) string {
	return fmt.Sprintf("cache:schedule:%d", providerID)
}

func checkoutKey(sessionKey string) string {
	return fmt.Sprintf("checkout:%s", sessionKey)
}

package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Additional-Code/servicedesk/internal/entity"
)

// OrderKey is the cache key of the order with the given id.
func OrderKey(id int64) string {
	return "ordens:" + strconv.FormatInt(id, 10)
}

// Orders caches service orders by id as JSON on top of a Store. A nil Store
// behaves as an always-missing cache.
type Orders struct {
	store Store
	ttl   time.Duration
}

// NewOrders wraps store; ttl <= 0 uses the store default.
func NewOrders(store Store, ttl time.Duration) *Orders {
	if store == nil {
		store = noopStore{}
	}
	return &Orders{store: store, ttl: ttl}
}

// Get returns the cached order or ErrCacheMiss.
func (o *Orders) Get(ctx context.Context, id int64) (*entity.ServiceOrder, error) {
	raw, err := o.store.Get(ctx, OrderKey(id))
	if err != nil {
		return nil, err
	}
	order := new(entity.ServiceOrder)
	if err := json.Unmarshal(raw, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Put caches order under its id.
func (o *Orders) Put(ctx context.Context, order *entity.ServiceOrder) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return o.store.Set(ctx, OrderKey(order.ID), raw, o.ttl)
}

// Evict drops the cached copy of the order with the given id.
func (o *Orders) Evict(ctx context.Context, id int64) error {
	return o.store.Delete(ctx, OrderKey(id))
}

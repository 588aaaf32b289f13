package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/cache"
	"warehouse.GO/model/entity"
)

// Calculator serves effective stock through a read-through cache. Writers
// call Forget after commit; a generation counter per item keeps a read that
// raced with a write from caching its stale result.
type Calculator struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger

	mu  sync.Mutex
	gen map[uint]uint64
}

func NewCalculator(db *gorm.DB, c *cache.Cache, ttl time.Duration, log *zap.Logger) *Calculator {
	if c == nil {
		c = cache.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{db: db, cache: c, ttl: ttl, log: log, gen: make(map[uint]uint64)}
}

func stockKey(id uint) string { return cache.Key("stock", id) }
func itemTag(id uint) string  { return fmt.Sprintf("item:%d", id) }

func (c *Calculator) generation(id uint) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[id]
}

// Breakdown computes the full derivation for one item, bypassing the cache.
func (c *Calculator) Breakdown(ctx context.Context, itemID uint) (*Breakdown, error) {
	return Compute(c.db.WithContext(ctx), itemID)
}

// CurrentStock returns the effective stock of itemID.
func (c *Calculator) CurrentStock(ctx context.Context, itemID uint) (int, error) {
	if v, ok := c.cache.Get(stockKey(itemID)); ok {
		return v.(int), nil
	}
	gen := c.generation(itemID)
	b, err := c.Breakdown(ctx, itemID)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	if c.gen[itemID] == gen {
		c.cache.Set(stockKey(itemID), b.Current, c.ttl, itemTag(itemID))
	}
	c.mu.Unlock()
	return b.Current, nil
}

// CurrentStocks returns effective stock for several items in one round of
// aggregate queries, filling from and into the cache.
func (c *Calculator) CurrentStocks(ctx context.Context, ids []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(ids))
	var missing []uint
	gens := make(map[uint]uint64)
	for _, id := range Unique(ids) {
		if v, ok := c.cache.Get(stockKey(id)); ok {
			out[id] = v.(int)
			continue
		}
		missing = append(missing, id)
		gens[id] = c.generation(id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	all, err := ComputeMany(c.db.WithContext(ctx), missing)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, b := range all {
		out[id] = b.Current
		if c.gen[id] == gens[id] {
			c.cache.Set(stockKey(id), b.Current, c.ttl, itemTag(id))
		}
	}
	return out, nil
}

// Forget invalidates cached values for ids. Call after the writing
// transaction has committed.
func (c *Calculator) Forget(ids ...uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.gen[id]++
		c.cache.DeleteByTag(itemTag(id))
	}
}

// RecalculateAll rewrites current_stock for every item whose stored value
// drifted from the derived one and returns how many were corrected.
func (c *Calculator) RecalculateAll(ctx context.Context) (int, error) {
	fixed := 0
	var drifted []uint
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all, err := ComputeMany(tx, nil)
		if err != nil {
			return err
		}
		var items []entity.InventoryItem
		if err := tx.Select("id", "current_stock").Find(&items).Error; err != nil {
			return err
		}
		for _, it := range items {
			b, ok := all[it.ID]
			if !ok || b.Current == it.CurrentStock {
				continue
			}
			if err := tx.Model(&entity.InventoryItem{}).Where("id = ?", it.ID).
				UpdateColumn("current_stock", b.Current).Error; err != nil {
				return err
			}
			c.log.Info("stock drift corrected",
				zap.Uint("item_id", it.ID), zap.Int("stored", it.CurrentStock), zap.Int("derived", b.Current))
			drifted = append(drifted, it.ID)
			fixed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.Forget(drifted...)
	return fixed, nil
}

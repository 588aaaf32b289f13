package graphqlserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"warehouse.GO/core/auth"
	"warehouse.GO/graphql"
	"warehouse.GO/graphql/registry"
	"warehouse.GO/model/entity"
	stockRepo "warehouse.GO/model/repository/stock"
	"warehouse.GO/service/ledger"
)

func init() {
	registry.Register("stockBreakdown", stockBreakdown)
	registry.Register("lowStock", lowStock)
}

func decodeArgs(args map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

// stockBreakdown returns the ledger figures of one item: {"sku": "CEM-1"}.
func stockBreakdown(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if err := graphql.Require(ctx, auth.ViewInventory); err != nil {
		return nil, err
	}
	var in struct {
		SKU string `mapstructure:"sku"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, fmt.Errorf("stockBreakdown args: %w", err)
	}
	if in.SKU == "" {
		return nil, errors.New("stockBreakdown: sku is required")
	}
	db := graphql.DBFromContext(ctx)
	if db == nil {
		return nil, errors.New("stockBreakdown: no database")
	}
	var item entity.InventoryItem
	if err := db.WithContext(ctx).Select("id").Where("sku = ?", in.SKU).First(&item).Error; err != nil {
		return nil, fmt.Errorf("item %s: %w", in.SKU, err)
	}
	return ledger.Compute(db.WithContext(ctx), item.ID)
}

// lowStock lists items at or under their reorder level, read from the
// denormalised column: {"limit": 10}.
func lowStock(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if err := graphql.Require(ctx, auth.ViewInventory); err != nil {
		return nil, err
	}
	var in struct {
		Limit int `mapstructure:"limit"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, fmt.Errorf("lowStock args: %w", err)
	}
	db := graphql.DBFromContext(ctx)
	if db == nil {
		return nil, errors.New("lowStock: no database")
	}
	repo, err := stockRepo.NewStockRepository(db)
	if err != nil {
		return nil, err
	}
	levels, err := repo.LowStock()
	if err != nil {
		return nil, err
	}
	if in.Limit > 0 && len(levels) > in.Limit {
		levels = levels[:in.Limit]
	}
	return levels, nil
}

// Package models holds the GraphQL view types. Field types follow graphql-go:
// Int is int32, ID is graphql.ID, nullable fields are pointers.
package models

import (
	gql "github.com/graph-gophers/graphql-go"
)

type Item struct {
	ID           gql.ID
	SKU          string
	Name         string
	Category     string
	Unit         *string
	UnitCost     string
	ReorderLevel int32
	LowStock     bool
	Stock        *StockBreakdown
}

type StockBreakdown struct {
	InitialStock int32 `mapstructure:"initialStock"`
	Delivered    int32 `mapstructure:"delivered"`
	Issued       int32 `mapstructure:"issued"`
	Returned     int32 `mapstructure:"returned"`
	Assigned     int32 `mapstructure:"assigned"`
	CurrentStock int32 `mapstructure:"currentStock"`
}

type ItemPage struct {
	Items       []*Item
	TotalCount  int32
	CurrentPage int32
	PageSize    int32
}

type Site struct {
	ID       gql.ID
	Code     string
	Name     string
	Location *string
	Status   string
	Budget   string
}

type Holding struct {
	ItemID   gql.ID
	SKU      string
	Name     string
	Quantity int32
}

type Transfer struct {
	ID         gql.ID
	TransferID string
	Status     string
	FromSite   *Site
	ToSite     *Site
	Remark     *string
	CreatedAt  string
	Lines      []*TransferLine
}

type TransferLine struct {
	SKU      string
	Name     string
	Quantity int32
}

package resolvers

import (
	"context"
	"strconv"

	"warehouse.GO/app"
	"warehouse.GO/core/auth"
	"warehouse.GO/graphql"
	gqlmodels "warehouse.GO/graphql/models"
	"warehouse.GO/service/inventory"
	"warehouse.GO/service/ledger"
	"warehouse.GO/service/site"
	"warehouse.GO/service/transfer"
)

// QueryResolver backs every Query field with the application services. The
// graph is read-only; writes stay on the REST routes.
type QueryResolver struct {
	app *app.App
}

func NewResolver(a *app.App) *QueryResolver {
	return &QueryResolver{app: a}
}

func defaultPageSize(p *int32) int {
	if p != nil && *p > 0 && *p <= 500 {
		return int(*p)
	}
	return 50
}

func defaultCurrentPage(p *int32) int {
	if p != nil && *p > 0 {
		return int(*p)
	}
	return 1
}

func parseID(raw string) (uint, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

func (r *QueryResolver) Item(ctx context.Context, sku string) (*gqlmodels.Item, error) {
	if err := graphql.Require(ctx, auth.ViewInventory); err != nil {
		return nil, err
	}
	item, err := r.app.Inventory.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	b, err := r.app.Calc.Breakdown(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return mapItem(item, b), nil
}

func (r *QueryResolver) Items(ctx context.Context, category *string, lowStock bool, pageSize, currentPage *int32) (*gqlmodels.ItemPage, error) {
	if err := graphql.Require(ctx, auth.ViewInventory); err != nil {
		return nil, err
	}
	ps, cp := defaultPageSize(pageSize), defaultCurrentPage(currentPage)
	f := inventory.Filter{LowStock: lowStock, Limit: ps, Offset: (cp - 1) * ps}
	if category != nil {
		f.Category = *category
	}
	items, total, err := r.app.Inventory.List(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	breakdowns, err := ledger.ComputeMany(r.app.DB.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}
	page := &gqlmodels.ItemPage{
		Items:       make([]*gqlmodels.Item, 0, len(items)),
		TotalCount:  int32(total),
		CurrentPage: int32(cp),
		PageSize:    int32(ps),
	}
	for i := range items {
		page.Items = append(page.Items, mapItem(&items[i], breakdowns[items[i].ID]))
	}
	return page, nil
}

func (r *QueryResolver) Categories(ctx context.Context) ([]string, error) {
	if err := graphql.Require(ctx, auth.ViewInventory); err != nil {
		return nil, err
	}
	out, err := r.app.Inventory.Categories(ctx)
	if out == nil {
		out = []string{}
	}
	return out, err
}

func (r *QueryResolver) Sites(ctx context.Context, status *string) ([]*gqlmodels.Site, error) {
	if err := graphql.Require(ctx, auth.ViewSites); err != nil {
		return nil, err
	}
	var f site.Filter
	if status != nil {
		f.Status = *status
	}
	sites, err := r.app.Sites.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*gqlmodels.Site, 0, len(sites))
	for i := range sites {
		out = append(out, mapSite(&sites[i]))
	}
	return out, nil
}

func (r *QueryResolver) SiteHoldings(ctx context.Context, siteID string) ([]*gqlmodels.Holding, error) {
	if err := graphql.Require(ctx, auth.ViewSites); err != nil {
		return nil, err
	}
	n, err := parseID(siteID)
	if err != nil {
		return nil, err
	}
	holdings, err := r.app.Transfers.SiteItems(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]*gqlmodels.Holding, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, mapHolding(h))
	}
	return out, nil
}

func (r *QueryResolver) Transfers(ctx context.Context, status, siteID *string) ([]*gqlmodels.Transfer, error) {
	if err := graphql.Require(ctx, auth.ViewTransfers); err != nil {
		return nil, err
	}
	var f transfer.Filter
	if status != nil {
		f.Status = *status
	}
	if siteID != nil {
		n, err := parseID(*siteID)
		if err != nil {
			return nil, err
		}
		f.SiteID = n
	}
	list, err := r.app.Transfers.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*gqlmodels.Transfer, 0, len(list))
	for i := range list {
		out = append(out, mapTransfer(&list[i]))
	}
	return out, nil
}

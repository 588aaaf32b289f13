package graphqlserver

import (
	"context"
	"encoding/json"

	gql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"warehouse.GO/app"
	"warehouse.GO/graphql"
	gqlmodels "warehouse.GO/graphql/models"
	"warehouse.GO/graphql/registry"
	"warehouse.GO/graphql/resolvers"
)

// QueryResolver is the graphql-go root. It adapts the argument structs to
// the resolvers package.
type QueryResolver struct {
	res *resolvers.QueryResolver
}

type ItemArgs struct {
	Sku string
}

func (r *QueryResolver) Item(ctx context.Context, args ItemArgs) (*gqlmodels.Item, error) {
	return r.res.Item(ctx, args.Sku)
}

type ItemsArgs struct {
	Category    *string
	LowStock    *bool
	PageSize    *int32
	CurrentPage *int32
}

func (r *QueryResolver) Items(ctx context.Context, args ItemsArgs) (*gqlmodels.ItemPage, error) {
	low := args.LowStock != nil && *args.LowStock
	return r.res.Items(ctx, args.Category, low, args.PageSize, args.CurrentPage)
}

func (r *QueryResolver) Categories(ctx context.Context) ([]string, error) {
	return r.res.Categories(ctx)
}

type SitesArgs struct {
	Status *string
}

func (r *QueryResolver) Sites(ctx context.Context, args SitesArgs) ([]*gqlmodels.Site, error) {
	return r.res.Sites(ctx, args.Status)
}

type SiteHoldingsArgs struct {
	SiteID gql.ID
}

func (r *QueryResolver) SiteHoldings(ctx context.Context, args SiteHoldingsArgs) ([]*gqlmodels.Holding, error) {
	return r.res.SiteHoldings(ctx, string(args.SiteID))
}

type TransfersArgs struct {
	Status *string
	SiteID *gql.ID
}

func (r *QueryResolver) Transfers(ctx context.Context, args TransfersArgs) ([]*gqlmodels.Transfer, error) {
	var site *string
	if args.SiteID != nil {
		s := string(*args.SiteID)
		site = &s
	}
	return r.res.Transfers(ctx, args.Status, site)
}

// ExtensionArgs for _extension(name, args).
type ExtensionArgs struct {
	Name string
	Args *string
}

func (r *QueryResolver) Extension(ctx context.Context, args ExtensionArgs) (*string, error) {
	var m map[string]interface{}
	if args.Args != nil && *args.Args != "" {
		if err := json.Unmarshal([]byte(*args.Args), &m); err != nil {
			return nil, err
		}
	}
	if m == nil {
		m = make(map[string]interface{})
	}
	out, err := registry.Resolve(ctx, args.Name, m)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// NewSchema parses the schema and returns a graphql-go Schema.
func NewSchema(a *app.App) (*gql.Schema, error) {
	return gql.ParseSchema(graphql.Schema(), &QueryResolver{res: resolvers.NewResolver(a)}, gql.UseFieldResolvers())
}

// Handler returns an http.Handler for GraphQL (relay format).
func Handler(schema *gql.Schema) *relay.Handler {
	return &relay.Handler{Schema: schema}
}

package custom

import (
	"context"
	"testing"

	"warehouse.GO/core/auth"
	"warehouse.GO/core/testdb"
	"warehouse.GO/graphql"
	gqlregistry "warehouse.GO/graphql/registry"
	"warehouse.GO/model/entity"
)

func TestSiteSummary(t *testing.T) {
	db := testdb.Open(t)
	for _, s := range []entity.Site{
		{Code: "A", Name: "A", Status: entity.SiteActive},
		{Code: "B", Name: "B", Status: entity.SiteActive},
		{Code: "C", Name: "C", Status: entity.SiteCompleted},
	} {
		s := s
		if err := db.Create(&s).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	ctx := graphql.WithDB(context.Background(), db)
	ctx = graphql.WithCaller(ctx, &auth.Principal{Username: "api", Static: true})

	out, err := gqlregistry.Resolve(ctx, "siteSummary", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	rows := out.([]statusCount)
	if len(rows) != 2 || rows[0].Status != entity.SiteActive || rows[0].Count != 2 {
		t.Errorf("summary = %+v", rows)
	}

	anon := graphql.WithDB(context.Background(), db)
	if _, err := gqlregistry.Resolve(anon, "siteSummary", nil); err == nil {
		t.Error("want permission error without a caller")
	}
}

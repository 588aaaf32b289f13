// Package custom shows the init-time extension points: a GraphQL
// _extension, a CLI command and a root route. Blank-import it from a main
// package to enable it.
package custom

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"warehouse.GO/api"
	"warehouse.GO/cmd"
	"warehouse.GO/config"
	"warehouse.GO/core/auth"
	"warehouse.GO/graphql"
	gqlregistry "warehouse.GO/graphql/registry"
	"warehouse.GO/model/entity"
)

// Version is stamped at build time with -ldflags "-X warehouse.GO/custom.Version=...".
var Version = "dev"

func init() {
	gqlregistry.Register("siteSummary", siteSummary)

	cmd.Register(&cobra.Command{
		Use:   "custom:version",
		Short: "Print the build version",
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintln(c.OutOrStdout(), Version)
		},
	})

	api.RegisterGET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"version": Version, "app": config.GetEnv("APP_NAME", "warehouse")})
	})
}

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// siteSummary counts sites per status.
func siteSummary(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	if err := graphql.Require(ctx, auth.ViewSites); err != nil {
		return nil, err
	}
	db := graphql.DBFromContext(ctx)
	if db == nil {
		return nil, errors.New("siteSummary: no database")
	}
	var rows []statusCount
	err := db.WithContext(ctx).Model(&entity.Site{}).
		Select("status, COUNT(*) AS count").Group("status").Order("status").
		Scan(&rows).Error
	return rows, err
}

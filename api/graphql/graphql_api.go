package graphql

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/auth"
	graphqlpkg "warehouse.GO/graphql"
	"warehouse.GO/graphqlserver"
)

func init() {
	api.RegisterModule(RegisterGraphQLRoutes)
	api.RegisterGET("/playground", func(c echo.Context) error {
		return c.HTML(http.StatusOK, playgroundHTML)
	})
}

// RegisterGraphQLRoutes mounts the read-only graph at /api/graphql. The
// caller and the database ride on the request context into the resolvers.
func RegisterGraphQLRoutes(apiGroup *echo.Group, a *app.App) {
	schema, err := graphqlserver.NewSchema(a)
	if err != nil {
		panic("graphql schema: " + err.Error())
	}
	h := echo.WrapHandler(graphqlserver.Handler(schema))
	handle := func(c echo.Context) error {
		req := c.Request()
		ctx := graphqlpkg.WithCaller(req.Context(), auth.Current(c))
		ctx = graphqlpkg.WithDB(ctx, a.DB)
		c.SetRequest(req.WithContext(ctx))
		return h(c)
	}
	apiGroup.POST("/graphql", handle)
}

const playgroundHTML = `<!DOCTYPE html>
<html>
<head>
	<title>GraphQL Playground</title>
	<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/css/index.css"/>
</head>
<body>
	<div id="root"/>
	<script src="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/js/middleware.js"></script>
	<script>window.addEventListener('load', function() {
		GraphQLPlayground.init({ endpoint: '/api/graphql' });
	})</script>
</body>
</html>`

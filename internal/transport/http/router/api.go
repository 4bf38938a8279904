package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskgraph/internal/core/auth"
	mdw "taskgraph/internal/transport/http/middleware"
)

// NewAPIEngine wires the single GraphQL endpoint behind the shared middleware
// chain. Authorization decisions stay in the resolvers; the transport only
// derives the identity.
func NewAPIEngine(l *zap.Logger, schema *graphql.Schema, jwter *auth.JWTer) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(l, true),
		mdw.Metrics(),
		mdw.AccessLog(l),
		cors.Default(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	gql := r.Group("/graphql")
	gql.Use(mdw.BearerAuth(jwter, l))
	gql.POST("", gin.WrapH(&relay.Handler{Schema: schema}))

	return r
}

// Package graph is the resolver layer: it authorizes each operation, turns
// declarative filter inputs into repo queries and translates failures into
// typed domain errors for the transport boundary.
package graph

import (
	"context"
	_ "embed"
	"time"

	"github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"taskgraph/internal/authz"
	"taskgraph/internal/core/auth"
	"taskgraph/internal/core/cache"
	"taskgraph/internal/core/storage"
	"taskgraph/internal/domain"
	"taskgraph/internal/repo"
)

//go:embed schema.graphql
var schemaSDL string

const userCacheTTL = 5 * time.Minute

// Resolver is the GraphQL root. Every collaborator is injected at startup;
// nothing here is package state.
type Resolver struct {
	log        *zap.Logger
	users      *repo.UserRepo
	tasks      *repo.TaskRepo
	jwt        *auth.JWTer
	storage    *storage.Client // nil disables profile-picture uploads
	cache      *cache.Cache    // nil disables the assignee read-through cache
	presignTTL time.Duration
}

type Deps struct {
	Log        *zap.Logger
	Users      *repo.UserRepo
	Tasks      *repo.TaskRepo
	JWT        *auth.JWTer
	Storage    *storage.Client
	Cache      *cache.Cache
	PresignTTL time.Duration
}

func New(d Deps) *Resolver {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.PresignTTL <= 0 {
		d.PresignTTL = 3 * time.Minute
	}
	return &Resolver{
		log:        d.Log,
		users:      d.Users,
		tasks:      d.Tasks,
		jwt:        d.JWT,
		storage:    d.Storage,
		cache:      d.Cache,
		presignTTL: d.PresignTTL,
	}
}

// NewSchema parses the embedded SDL against the root resolver. Sibling field
// resolvers run concurrently up to the parallelism cap.
func NewSchema(r *Resolver) *graphql.Schema {
	return graphql.MustParseSchema(schemaSDL, r, graphql.MaxParallelism(10))
}

// caller resolves the request identity, surfacing InvalidToken for tampered
// or expired tokens. (nil, nil) means anonymous.
func caller(ctx context.Context) (*authz.Identity, error) {
	id, derr := authz.FromContext(ctx)
	if derr != nil {
		return nil, derr
	}
	return id, nil
}

// wrapStore logs the underlying cause for operators and hands the caller an
// opaque, operation-specific failure. Already-typed errors pass through.
func (r *Resolver) wrapStore(msg string, err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	r.log.Error(msg, zap.Error(err))
	return domain.Store(msg, err)
}

func userCacheKey(id string) string { return "user:" + id }

// userByID reads through the cache when one is configured. Missing users are
// negatively cached so a storm of dangling lookups cannot hammer the store.
func (r *Resolver) userByID(ctx context.Context, id string) (*domain.User, error) {
	if r.cache == nil {
		return r.users.FindByID(ctx, id)
	}
	return cache.GetOrLoadJSON[domain.User](r.cache, ctx, userCacheKey(id), userCacheTTL, func(ctx context.Context) (*domain.User, error) {
		return r.users.FindByID(ctx, id)
	})
}

func (r *Resolver) invalidateUser(ctx context.Context, ids ...string) {
	if r.cache == nil {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, userCacheKey(id))
	}
	r.cache.Invalidate(ctx, keys...)
}

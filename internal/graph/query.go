package graph

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"taskgraph/internal/authz"
	"taskgraph/internal/domain"
)

type userListArgs struct {
	Filter  *UserFilterInput
	OrderBy *string
	Limit   *int32
	Offset  *int32
}

type taskListArgs struct {
	Filter  *TaskFilterInput
	OrderBy *string
	Limit   *int32
	Offset  *int32
}

// GetUsers lists users for admins. An empty match is an empty list, not an
// error.
func (r *Resolver) GetUsers(ctx context.Context, args userListArgs) ([]*UserResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAdmin(id); perr != nil {
		return nil, perr
	}
	users, err := r.users.List(ctx, args.Filter.toRepo(), listOptions(args.OrderBy, args.Limit, args.Offset))
	if err != nil {
		return nil, r.wrapStore("failed to fetch users", err)
	}
	return r.userResolvers(users), nil
}

func (r *Resolver) GetUserById(ctx context.Context, args struct{ ID graphql.ID }) (*UserResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireSelfOrAdmin(id, string(args.ID)); perr != nil {
		return nil, perr
	}
	u, err := r.users.FindByID(ctx, string(args.ID))
	if err != nil {
		return nil, r.wrapStore("failed to fetch user", err)
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return &UserResolver{r: r, u: *u}, nil
}

// GetLoggedUser returns the caller's own profile.
func (r *Resolver) GetLoggedUser(ctx context.Context) (*UserResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAuthenticated(id); perr != nil {
		return nil, perr
	}
	u, err := r.users.FindByID(ctx, id.UserID)
	if err != nil {
		return nil, r.wrapStore("failed to fetch user", err)
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return &UserResolver{r: r, u: *u}, nil
}

func (r *Resolver) GetTasks(ctx context.Context, args taskListArgs) ([]*TaskResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAdmin(id); perr != nil {
		return nil, perr
	}
	tasks, err := r.tasks.List(ctx, args.Filter.toRepo(), listOptions(args.OrderBy, args.Limit, args.Offset))
	if err != nil {
		return nil, r.wrapStore("failed to fetch tasks", err)
	}
	return r.taskResolvers(tasks), nil
}

func (r *Resolver) GetTaskById(ctx context.Context, args struct{ ID graphql.ID }) (*TaskResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAuthenticated(id); perr != nil {
		return nil, perr
	}
	t, err := r.tasks.FindByID(ctx, string(args.ID))
	if err != nil {
		return nil, r.wrapStore("failed to fetch task", err)
	}
	if t == nil {
		return nil, domain.NotFound("task not found")
	}
	if perr := authz.RequireOwnerOrAdmin(id, t.AssigneeID); perr != nil {
		return nil, perr
	}
	return &TaskResolver{r: r, t: *t}, nil
}

// GetLoggedTask lists the caller's own tasks; whatever assignee constraint
// the filter carries is intersected with the caller's id.
func (r *Resolver) GetLoggedTask(ctx context.Context, args taskListArgs) ([]*TaskResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAuthenticated(id); perr != nil {
		return nil, perr
	}
	f := args.Filter.toRepo()
	if len(f.AssigneeIn) > 0 && !containsString(f.AssigneeIn, id.UserID) {
		return []*TaskResolver{}, nil
	}
	f.AssigneeIn = []string{id.UserID}
	tasks, err := r.tasks.List(ctx, f, listOptions(args.OrderBy, args.Limit, args.Offset))
	if err != nil {
		return nil, r.wrapStore("failed to fetch tasks", err)
	}
	return r.taskResolvers(tasks), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

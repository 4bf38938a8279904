package graph

import (
	"context"
	"strings"

	"github.com/graph-gophers/graphql-go"

	"taskgraph/internal/authz"
	"taskgraph/internal/core/storage"
	"taskgraph/internal/domain"
	"taskgraph/internal/repo"
	"taskgraph/pkg/utils"
)

// Login verifies email + password and issues a signed token. Any mismatch is
// the same InvalidCredentials; the response never says which half was wrong.
func (r *Resolver) Login(ctx context.Context, args struct{ Email, Password string }) (*AuthPayloadResolver, error) {
	email := strings.TrimSpace(args.Email)
	if email == "" || args.Password == "" {
		return nil, domain.Validation("email and password are required")
	}
	u, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, r.wrapStore("login failed", err)
	}
	if u == nil || !utils.CheckPassword(args.Password, u.PasswordHash) {
		return nil, domain.InvalidCredentials()
	}
	token, err := r.jwt.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, r.wrapStore("login failed", err)
	}
	return &AuthPayloadResolver{token: token, user: &UserResolver{r: r, u: *u}}, nil
}

func (r *Resolver) CreateUser(ctx context.Context, args struct{ Input CreateUserInput }) (*UserResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAdmin(id); perr != nil {
		return nil, perr
	}
	in := args.Input
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, domain.Validation("email is required")
	}
	if in.Password == "" {
		return nil, domain.Validation("password is required")
	}
	role := domain.RoleUser
	if in.Role != nil {
		role = domain.Role(*in.Role)
	}
	u := domain.User{
		ID:           utils.NewID(),
		Email:        email,
		PasswordHash: utils.HashPassword(in.Password),
		Role:         role,
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if err := r.users.Create(ctx, &u); err != nil {
		if repo.IsDuplicateKey(err) {
			return nil, domain.Validation("email already in use")
		}
		return nil, r.wrapStore("failed to create user", err)
	}
	return &UserResolver{r: r, u: u}, nil
}

// UpdateUser persists only the supplied fields. A profilePic input presigns
// an upload URL and records the object key; the caller PUTs the bytes there.
func (r *Resolver) UpdateUser(ctx context.Context, args struct {
	ID    graphql.ID
	Input UpdateUserInput
}) (*UpdateUserPayloadResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireSelfOrAdmin(id, string(args.ID)); perr != nil {
		return nil, perr
	}
	in := args.Input

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, domain.Validation("email cannot be empty")
		}
		fields["email"] = email
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, domain.Validation("password cannot be empty")
		}
		fields["password_hash"] = utils.HashPassword(*in.Password)
	}

	var uploadURL *string
	if in.ProfilePic != nil {
		name := strings.TrimSpace(in.ProfilePic.FileName)
		if name == "" || name == "." || strings.HasSuffix(name, "/") {
			return nil, domain.Validation("fileName must be a plain file name")
		}
		if r.storage == nil {
			return nil, domain.Validation("profile picture uploads are not configured")
		}
		key := storage.ObjectKey(name)
		u, err := r.storage.PresignUpload(ctx, key, in.ProfilePic.ContentType, r.presignTTL)
		if err != nil {
			return nil, r.wrapStore("failed to issue upload url", err)
		}
		uploadURL = &u
		fields["profile_pic"] = key
	}

	u, err := r.users.UpdateFields(ctx, string(args.ID), fields)
	if err != nil {
		if repo.IsDuplicateKey(err) {
			return nil, domain.Validation("email already in use")
		}
		return nil, r.wrapStore("failed to update user", err)
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	r.invalidateUser(ctx, u.ID)
	return &UpdateUserPayloadResolver{user: &UserResolver{r: r, u: *u}, uploadURL: uploadURL}, nil
}

// DeleteUser removes all users matching the filter, and their tasks, as one
// atomic operation. Returns the number of users deleted.
func (r *Resolver) DeleteUser(ctx context.Context, args struct{ Filter UserFilterInput }) (*DeleteResultResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAdmin(id); perr != nil {
		return nil, perr
	}
	count, err := r.users.DeleteWhere(ctx, args.Filter.toRepo())
	if err != nil {
		return nil, r.wrapStore("failed to delete users", err)
	}
	return &DeleteResultResolver{count: int32(count)}, nil
}

// CreateTask self-assigns a task to the caller; createdBy records the
// caller's role.
func (r *Resolver) CreateTask(ctx context.Context, args struct{ Input CreateTaskInput }) (*TaskResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAuthenticated(id); perr != nil {
		return nil, perr
	}
	title := strings.TrimSpace(args.Input.Title)
	if title == "" {
		return nil, domain.Validation("title is required")
	}
	t := domain.Task{
		ID:         utils.NewID(),
		Title:      title,
		Status:     domain.StatusPending,
		AssigneeID: id.UserID,
		CreatedBy:  id.Role,
	}
	if args.Input.Description != nil {
		t.Description = *args.Input.Description
	}
	if err := r.tasks.Create(ctx, &t); err != nil {
		return nil, r.wrapStore("failed to create task", err)
	}
	return &TaskResolver{r: r, t: t}, nil
}

// AddTask bulk-assigns one identical task per listed assignee, createdBy
// ADMIN, in a single batch insert.
func (r *Resolver) AddTask(ctx context.Context, args struct{ Input AddTaskInput }) ([]*TaskResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAdmin(id); perr != nil {
		return nil, perr
	}
	in := args.Input
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Validation("title is required")
	}
	if len(in.AssigneeIds) == 0 {
		return nil, domain.Validation("assigneeIds cannot be empty")
	}

	assignees := make([]string, 0, len(in.AssigneeIds))
	seen := map[string]struct{}{}
	for _, aid := range in.AssigneeIds {
		s := string(aid)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		assignees = append(assignees, s)
	}

	// every assignee must reference an existing user
	n, err := r.users.CountByIDs(ctx, assignees)
	if err != nil {
		return nil, r.wrapStore("failed to create tasks", err)
	}
	if n != int64(len(assignees)) {
		return nil, domain.Validation("one or more assignees do not exist")
	}

	tasks := make([]domain.Task, 0, len(assignees))
	for _, aid := range assignees {
		t := domain.Task{
			ID:         utils.NewID(),
			Title:      title,
			Status:     domain.StatusPending,
			AssigneeID: aid,
			CreatedBy:  domain.RoleAdmin,
		}
		if in.Description != nil {
			t.Description = *in.Description
		}
		tasks = append(tasks, t)
	}
	if err := r.tasks.CreateBatch(ctx, tasks); err != nil {
		return nil, r.wrapStore("failed to create tasks", err)
	}
	return r.taskResolvers(tasks), nil
}

func (r *Resolver) UpdateTask(ctx context.Context, args struct {
	ID    graphql.ID
	Input UpdateTaskInput
}) (*TaskResolver, error) {
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

	in := args.Input
	fields := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, domain.Validation("title cannot be empty")
		}
		fields["title"] = title
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Status != nil {
		st := domain.TaskStatus(*in.Status)
		fields["status"] = st
	}
	updated, err := r.tasks.UpdateFields(ctx, t.ID, fields)
	if err != nil {
		return nil, r.wrapStore("failed to update task", err)
	}
	if updated == nil {
		return nil, domain.NotFound("task not found")
	}
	return &TaskResolver{r: r, t: *updated}, nil
}

// DeleteTask bulk-deletes by filter. Non-admin callers are confined to their
// own USER-created tasks: the restriction is folded into the filter, so a
// filter naming admin-created tasks matches nothing rather than erroring.
func (r *Resolver) DeleteTask(ctx context.Context, args struct{ Filter TaskFilterInput }) (*DeleteResultResolver, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if perr := authz.RequireAuthenticated(id); perr != nil {
		return nil, perr
	}
	f := args.Filter.toRepo()
	if !id.IsAdmin() {
		if f.CreatedBy != nil && *f.CreatedBy != domain.RoleUser {
			return &DeleteResultResolver{count: 0}, nil
		}
		createdBy := domain.RoleUser
		f.CreatedBy = &createdBy
		if len(f.AssigneeIn) > 0 && !containsString(f.AssigneeIn, id.UserID) {
			return &DeleteResultResolver{count: 0}, nil
		}
		f.AssigneeIn = []string{id.UserID}
	}
	count, err := r.tasks.DeleteWhere(ctx, f)
	if err != nil {
		return nil, r.wrapStore("failed to delete tasks", err)
	}
	return &DeleteResultResolver{count: int32(count)}, nil
}

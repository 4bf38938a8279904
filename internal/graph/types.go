package graph

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"taskgraph/internal/domain"
	"taskgraph/internal/repo"
)

// ---- inputs ----

// Every recognized filter option is enumerated here; a nil field is a no-op
// constraint, never a match against NULL.

type UserFilterInput struct {
	Role             *string
	IdsIn            *[]graphql.ID
	NamesIn          *[]string
	EmailsIn         *[]string
	UserWithoutTasks *bool
	TaskStatus       *string
}

func (in *UserFilterInput) toRepo() repo.UserFilter {
	var f repo.UserFilter
	if in == nil {
		return f
	}
	if in.Role != nil {
		role := domain.Role(*in.Role)
		f.Role = &role
	}
	f.IDsIn = idStrings(in.IdsIn)
	if in.NamesIn != nil {
		f.NamesIn = *in.NamesIn
	}
	if in.EmailsIn != nil {
		f.EmailsIn = *in.EmailsIn
	}
	f.UserWithoutTasks = in.UserWithoutTasks
	if in.TaskStatus != nil {
		st := domain.TaskStatus(*in.TaskStatus)
		f.TaskStatus = &st
	}
	return f
}

type TaskFilterInput struct {
	IdsIn      *[]graphql.ID
	TitlesIn   *[]string
	Status     *string
	AssigneeIn *[]graphql.ID
	CreatedBy  *string
}

func (in *TaskFilterInput) toRepo() repo.TaskFilter {
	var f repo.TaskFilter
	if in == nil {
		return f
	}
	f.IDsIn = idStrings(in.IdsIn)
	if in.TitlesIn != nil {
		f.TitlesIn = *in.TitlesIn
	}
	if in.Status != nil {
		st := domain.TaskStatus(*in.Status)
		f.Status = &st
	}
	f.AssigneeIn = idStrings(in.AssigneeIn)
	if in.CreatedBy != nil {
		role := domain.Role(*in.CreatedBy)
		f.CreatedBy = &role
	}
	return f
}

func idStrings(ids *[]graphql.ID) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, 0, len(*ids))
	for _, id := range *ids {
		out = append(out, string(id))
	}
	return out
}

func listOptions(orderBy *string, limit, offset *int32) repo.ListOptions {
	var o repo.ListOptions
	if orderBy != nil {
		o.OrderBy = *orderBy
	}
	if limit != nil {
		o.Limit = int(*limit)
	}
	if offset != nil {
		o.Offset = int(*offset)
	}
	return o
}

type CreateUserInput struct {
	Email    string
	Password string
	Name     *string
	Role     *string
}

type ProfilePicInput struct {
	FileName    string
	ContentType string
}

type UpdateUserInput struct {
	Name       *string
	Email      *string
	Password   *string
	ProfilePic *ProfilePicInput
}

type CreateTaskInput struct {
	Title       string
	Description *string
}

type AddTaskInput struct {
	Title       string
	Description *string
	AssigneeIds []graphql.ID
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
}

// ---- type resolvers ----

type UserResolver struct {
	r *Resolver
	u domain.User
}

func (ur *UserResolver) ID() graphql.ID { return graphql.ID(ur.u.ID) }

func (ur *UserResolver) Name() *string { return optional(ur.u.Name) }

func (ur *UserResolver) Email() string { return ur.u.Email }

func (ur *UserResolver) Role() string { return string(ur.u.Role) }

func (ur *UserResolver) ProfilePic() *string { return optional(ur.u.ProfilePic) }

// Tasks resolves all tasks referencing this user.
func (ur *UserResolver) Tasks(ctx context.Context) ([]*TaskResolver, error) {
	tasks, err := ur.r.tasks.ListByAssignee(ctx, ur.u.ID)
	if err != nil {
		return nil, ur.r.wrapStore("failed to fetch user tasks", err)
	}
	return ur.r.taskResolvers(tasks), nil
}

type TaskResolver struct {
	r *Resolver
	t domain.Task
}

func (tr *TaskResolver) ID() graphql.ID { return graphql.ID(tr.t.ID) }

func (tr *TaskResolver) Title() string { return tr.t.Title }

func (tr *TaskResolver) Description() *string { return optional(tr.t.Description) }

func (tr *TaskResolver) Status() string { return string(tr.t.Status) }

func (tr *TaskResolver) CreatedAt() graphql.Time { return graphql.Time{Time: tr.t.CreatedAt} }

func (tr *TaskResolver) CreatedBy() string { return string(tr.t.CreatedBy) }

// Assignee resolves the user this task references.
func (tr *TaskResolver) Assignee(ctx context.Context) (*UserResolver, error) {
	u, err := tr.r.userByID(ctx, tr.t.AssigneeID)
	if err != nil {
		return nil, tr.r.wrapStore("failed to fetch assignee", err)
	}
	if u == nil {
		return nil, domain.NotFound("assignee not found")
	}
	return &UserResolver{r: tr.r, u: *u}, nil
}

type AuthPayloadResolver struct {
	token string
	user  *UserResolver
}

func (ap *AuthPayloadResolver) Token() string       { return ap.token }
func (ap *AuthPayloadResolver) User() *UserResolver { return ap.user }

type UpdateUserPayloadResolver struct {
	user      *UserResolver
	uploadURL *string
}

func (p *UpdateUserPayloadResolver) User() *UserResolver { return p.user }
func (p *UpdateUserPayloadResolver) UploadUrl() *string  { return p.uploadURL }

type DeleteResultResolver struct{ count int32 }

func (d *DeleteResultResolver) Count() int32 { return d.count }

// ---- helpers ----

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *Resolver) userResolvers(users []domain.User) []*UserResolver {
	out := make([]*UserResolver, 0, len(users))
	for _, u := range users {
		out = append(out, &UserResolver{r: r, u: u})
	}
	return out
}

func (r *Resolver) taskResolvers(tasks []domain.Task) []*TaskResolver {
	out := make([]*TaskResolver, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, &TaskResolver{r: r, t: t})
	}
	return out
}

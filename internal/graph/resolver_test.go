package graph

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskgraph/internal/authz"
	"taskgraph/internal/core/auth"
	"taskgraph/internal/domain"
	"taskgraph/internal/repo"
	"taskgraph/pkg/utils"
)

type testEnv struct {
	schema *graphql.Schema
	users  *repo.UserRepo
	tasks  *repo.TaskRepo
	jwt    *auth.JWTer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Task{}))

	users := repo.NewUserRepo(db)
	tasks := repo.NewTaskRepo(db)
	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "taskgraph-test", TTL: time.Hour}

	r := New(Deps{Users: users, Tasks: tasks, JWT: jwter})
	return &testEnv{schema: NewSchema(r), users: users, tasks: tasks, jwt: jwter}
}

func (e *testEnv) seedUser(t *testing.T, name, email, password string, role domain.Role) domain.User {
	t.Helper()
	u := domain.User{
		ID:           utils.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: utils.HashPassword(password),
		Role:         role,
	}
	require.NoError(t, e.users.Create(context.Background(), &u))
	return u
}

func (e *testEnv) seedTask(t *testing.T, title, assigneeID string, createdBy domain.Role) domain.Task {
	t.Helper()
	task := domain.Task{
		ID:         utils.NewID(),
		Title:      title,
		Status:     domain.StatusPending,
		AssigneeID: assigneeID,
		CreatedBy:  createdBy,
	}
	require.NoError(t, e.tasks.Create(context.Background(), &task))
	return task
}

func ctxAs(u domain.User) context.Context {
	return authz.WithIdentity(context.Background(), &authz.Identity{UserID: u.ID, Role: u.Role})
}

func (e *testEnv) exec(ctx context.Context, query string, vars map[string]interface{}) *graphql.Response {
	return e.schema.Exec(ctx, query, "", vars)
}

func decodeData(t *testing.T, resp *graphql.Response, into any) {
	t.Helper()
	require.Empty(t, resp.Errors, "unexpected errors: %v", resp.Errors)
	require.NoError(t, json.Unmarshal(resp.Data, into))
}

func assertErrKind(t *testing.T, resp *graphql.Response, kind domain.Kind) {
	t.Helper()
	require.NotEmpty(t, resp.Errors, "expected a resolver error")
	ext := resp.Errors[0].Extensions
	require.NotNil(t, ext, "error carries no extensions: %v", resp.Errors[0])
	assert.Equal(t, string(kind), ext["code"])
}

func TestLoginIssuesDecodableToken(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(t, "alice", "a@b.com", "hunter2", domain.RoleAdmin)

	resp := e.exec(context.Background(),
		`mutation($email: String!, $password: String!) {
			login(email: $email, password: $password) { token user { id role } }
		}`,
		map[string]interface{}{"email": "a@b.com", "password": "hunter2"},
	)

	var out struct {
		Login struct {
			Token string
			User  struct {
				ID   string
				Role string
			}
		}
	}
	decodeData(t, resp, &out)
	assert.Equal(t, u.ID, out.Login.User.ID)
	assert.Equal(t, "ADMIN", out.Login.User.Role)

	claims, err := e.jwt.Parse(out.Login.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UID)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestLoginMismatch(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", "a@b.com", "hunter2", domain.RoleUser)

	q := `mutation($email: String!, $password: String!) { login(email: $email, password: $password) { token } }`

	resp := e.exec(context.Background(), q, map[string]interface{}{"email": "a@b.com", "password": "wrong"})
	assertErrKind(t, resp, domain.KindInvalidCredentials)

	// unknown email yields the same failure, never a hint
	resp = e.exec(context.Background(), q, map[string]interface{}{"email": "ghost@b.com", "password": "hunter2"})
	assertErrKind(t, resp, domain.KindInvalidCredentials)
}

func TestAdminOnlyOperationsRejectNonAdmins(t *testing.T) {
	e := newTestEnv(t)
	u := e.seedUser(t, "worker", "w@b.com", "pw", domain.RoleUser)
	ctx := ctxAs(u)

	for _, q := range []string{
		`{ getUsers { id } }`,
		`{ getTasks { id } }`,
		`mutation { createUser(input: {email: "x@y.com", password: "pw"}) { id } }`,
		`mutation { deleteUser(filter: {role: USER}) { count } }`,
		`mutation { AddTask(input: {title: "T", assigneeIds: ["u1"]}) { id } }`,
	} {
		resp := e.exec(ctx, q, nil)
		assertErrKind(t, resp, domain.KindForbidden)
	}
}

func TestAnonymousIsUnauthorized(t *testing.T) {
	e := newTestEnv(t)
	resp := e.exec(context.Background(), `{ getLoggedUser { id } }`, nil)
	assertErrKind(t, resp, domain.KindUnauthorized)
}

func TestTamperedTokenIsNotAnonymous(t *testing.T) {
	e := newTestEnv(t)
	ctx := authz.WithTokenError(context.Background(), assert.AnError)
	resp := e.exec(ctx, `{ getLoggedUser { id } }`, nil)
	assertErrKind(t, resp, domain.KindInvalidToken)
}

func TestCreateUserNeverStoresPlaintext(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "rootpw", domain.RoleAdmin)

	resp := e.exec(ctxAs(admin),
		`mutation { createUser(input: {email: "new@b.com", password: "s3cret", name: "newbie"}) { id email role } }`,
		nil,
	)
	var out struct {
		CreateUser struct {
			ID    string
			Email string
			Role  string
		}
	}
	decodeData(t, resp, &out)
	assert.Equal(t, "USER", out.CreateUser.Role) // defaults to USER

	stored, err := e.users.FindByID(context.Background(), out.CreateUser.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.True(t, utils.CheckPassword("s3cret", stored.PasswordHash))

	// round-trip: the new user sees their own profile
	resp = e.exec(ctxAs(*stored), `{ getLoggedUser { id email } }`, nil)
	var me struct {
		GetLoggedUser struct {
			ID    string
			Email string
		}
	}
	decodeData(t, resp, &me)
	assert.Equal(t, out.CreateUser.ID, me.GetLoggedUser.ID)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "rootpw", domain.RoleAdmin)
	e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)

	resp := e.exec(ctxAs(admin),
		`mutation { createUser(input: {email: "a@b.com", password: "pw"}) { id } }`, nil)
	assertErrKind(t, resp, domain.KindValidation)
}

func TestGetUsersFilterAndLimit(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)
	e.seedUser(t, "bob", "b@b.com", "pw", domain.RoleUser)
	e.seedUser(t, "carol", "c@b.com", "pw", domain.RoleUser)

	resp := e.exec(ctxAs(admin),
		`{ getUsers(filter: {role: USER}, orderBy: "name_asc", limit: 2) { name } }`, nil)
	var out struct {
		GetUsers []struct{ Name *string }
	}
	decodeData(t, resp, &out)
	require.Len(t, out.GetUsers, 2)
	assert.Equal(t, "alice", *out.GetUsers[0].Name)
	assert.Equal(t, "bob", *out.GetUsers[1].Name)

	// empty match is an empty list, not an error
	resp = e.exec(ctxAs(admin), `{ getUsers(filter: {namesIn: ["nobody"]}) { id } }`, nil)
	decodeData(t, resp, &out)
	assert.Empty(t, out.GetUsers)
}

func TestGetUsersBadOrderBy(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	resp := e.exec(ctxAs(admin), `{ getUsers(orderBy: "password_asc") { id } }`, nil)
	assertErrKind(t, resp, domain.KindValidation)
}

func TestAddTaskBulkAssignment(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	u1 := e.seedUser(t, "u1", "u1@b.com", "pw", domain.RoleUser)
	u2 := e.seedUser(t, "u2", "u2@b.com", "pw", domain.RoleUser)
	u3 := e.seedUser(t, "u3", "u3@b.com", "pw", domain.RoleUser)

	resp := e.exec(ctxAs(admin),
		`mutation($ids: [ID!]!) {
			AddTask(input: {title: "T", assigneeIds: $ids}) { id title createdBy assignee { id } }
		}`,
		map[string]interface{}{"ids": []interface{}{u1.ID, u2.ID, u3.ID}},
	)
	var out struct {
		AddTask []struct {
			ID        string
			Title     string
			CreatedBy string
			Assignee  struct{ ID string }
		}
	}
	decodeData(t, resp, &out)
	require.Len(t, out.AddTask, 3)
	seen := map[string]bool{}
	for _, task := range out.AddTask {
		assert.Equal(t, "T", task.Title)
		assert.Equal(t, "ADMIN", task.CreatedBy)
		assert.False(t, seen[task.Assignee.ID])
		seen[task.Assignee.ID] = true
	}
}

func TestAddTaskUnknownAssignee(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)

	resp := e.exec(ctxAs(admin),
		`mutation { AddTask(input: {title: "T", assigneeIds: ["ghost"]}) { id } }`, nil)
	assertErrKind(t, resp, domain.KindValidation)
}

func TestUpdateTaskOwnership(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	alice := e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)
	bob := e.seedUser(t, "bob", "b@b.com", "pw", domain.RoleUser)
	task := e.seedTask(t, "report", alice.ID, domain.RoleUser)

	q := `mutation($id: ID!) { updateTask(id: $id, input: {status: COMPLETED}) { id title status } }`
	vars := map[string]interface{}{"id": task.ID}

	// non-owner USER is rejected
	resp := e.exec(ctxAs(bob), q, vars)
	assertErrKind(t, resp, domain.KindForbidden)

	// owner succeeds, and only the supplied field changes
	resp = e.exec(ctxAs(alice), q, vars)
	var out struct {
		UpdateTask struct {
			ID     string
			Title  string
			Status string
		}
	}
	decodeData(t, resp, &out)
	assert.Equal(t, "COMPLETED", out.UpdateTask.Status)
	assert.Equal(t, "report", out.UpdateTask.Title)

	// admin may update any task
	resp = e.exec(ctxAs(admin),
		`mutation($id: ID!) { updateTask(id: $id, input: {title: "renamed"}) { title status } }`, vars)
	var out2 struct {
		UpdateTask struct {
			Title  string
			Status string
		}
	}
	decodeData(t, resp, &out2)
	assert.Equal(t, "renamed", out2.UpdateTask.Title)
	assert.Equal(t, "COMPLETED", out2.UpdateTask.Status)
}

func TestUpdateTaskMissing(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	resp := e.exec(ctxAs(admin),
		`mutation { updateTask(id: "ghost", input: {title: "x"}) { id } }`, nil)
	assertErrKind(t, resp, domain.KindNotFound)
}

func TestDeleteTaskCreatedByRestriction(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	alice := e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)
	e.seedTask(t, "assigned", alice.ID, domain.RoleAdmin)
	e.seedTask(t, "assigned", alice.ID, domain.RoleAdmin)

	q := `mutation { deleteTask(filter: {titlesIn: ["assigned"]}) { count } }`
	var out struct {
		DeleteTask struct{ Count int32 }
	}

	// USER cannot delete admin-created tasks, even their own
	resp := e.exec(ctxAs(alice), q, nil)
	decodeData(t, resp, &out)
	assert.Equal(t, int32(0), out.DeleteTask.Count)

	// ADMIN with the same filter deletes all matching
	resp = e.exec(ctxAs(admin), q, nil)
	decodeData(t, resp, &out)
	assert.Equal(t, int32(2), out.DeleteTask.Count)
}

func TestDeleteTaskOwnTasks(t *testing.T) {
	e := newTestEnv(t)
	alice := e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)
	bob := e.seedUser(t, "bob", "b@b.com", "pw", domain.RoleUser)
	e.seedTask(t, "mine", alice.ID, domain.RoleUser)
	e.seedTask(t, "mine", bob.ID, domain.RoleUser)

	resp := e.exec(ctxAs(alice), `mutation { deleteTask(filter: {titlesIn: ["mine"]}) { count } }`, nil)
	var out struct {
		DeleteTask struct{ Count int32 }
	}
	decodeData(t, resp, &out)
	// bob's task is out of reach
	assert.Equal(t, int32(1), out.DeleteTask.Count)
}

func TestDeleteTaskEmptyFilter(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	alice := e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)
	e.seedTask(t, "one", alice.ID, domain.RoleAdmin)
	e.seedTask(t, "two", alice.ID, domain.RoleUser)

	// with no fields set nothing is constrained; for an admin that is delete-all
	resp := e.exec(ctxAs(admin), `mutation { deleteTask(filter: {}) { count } }`, nil)
	var out struct {
		DeleteTask struct{ Count int32 }
	}
	decodeData(t, resp, &out)
	assert.Equal(t, int32(2), out.DeleteTask.Count)
}

func TestDeleteUserBulkAndIdempotence(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)
	e.seedUser(t, "bob", "b@b.com", "pw", domain.RoleUser)

	q := `mutation { deleteUser(filter: {role: USER}) { count } }`
	var out struct {
		DeleteUser struct{ Count int32 }
	}

	resp := e.exec(ctxAs(admin), q, nil)
	decodeData(t, resp, &out)
	assert.Equal(t, int32(2), out.DeleteUser.Count)

	resp = e.exec(ctxAs(admin), q, nil)
	decodeData(t, resp, &out)
	assert.Equal(t, int32(0), out.DeleteUser.Count)
}

func TestGetLoggedTaskScopedToCaller(t *testing.T) {
	e := newTestEnv(t)
	alice := e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)
	bob := e.seedUser(t, "bob", "b@b.com", "pw", domain.RoleUser)
	e.seedTask(t, "a1", alice.ID, domain.RoleUser)
	e.seedTask(t, "b1", bob.ID, domain.RoleUser)

	resp := e.exec(ctxAs(alice), `{ getLoggedTask { title } }`, nil)
	var out struct {
		GetLoggedTask []struct{ Title string }
	}
	decodeData(t, resp, &out)
	require.Len(t, out.GetLoggedTask, 1)
	assert.Equal(t, "a1", out.GetLoggedTask[0].Title)

	// a filter naming someone else's tasks yields an empty list
	resp = e.exec(ctxAs(alice),
		`query($ids: [ID!]) { getLoggedTask(filter: {assigneeIn: $ids}) { title } }`,
		map[string]interface{}{"ids": []interface{}{bob.ID}},
	)
	decodeData(t, resp, &out)
	assert.Empty(t, out.GetLoggedTask)
}

func TestUpdateUserSelfOrAdmin(t *testing.T) {
	e := newTestEnv(t)
	alice := e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)
	bob := e.seedUser(t, "bob", "b@b.com", "pw", domain.RoleUser)

	q := `mutation($id: ID!) { updateUser(id: $id, input: {name: "renamed"}) { user { id name email } } }`

	resp := e.exec(ctxAs(bob), q, map[string]interface{}{"id": alice.ID})
	assertErrKind(t, resp, domain.KindForbidden)

	resp = e.exec(ctxAs(alice), q, map[string]interface{}{"id": alice.ID})
	var out struct {
		UpdateUser struct {
			User struct {
				ID    string
				Name  *string
				Email string
			}
		}
	}
	decodeData(t, resp, &out)
	require.NotNil(t, out.UpdateUser.User.Name)
	assert.Equal(t, "renamed", *out.UpdateUser.User.Name)
	assert.Equal(t, "a@b.com", out.UpdateUser.User.Email)
}

func TestUpdateUserProfilePicFileName(t *testing.T) {
	e := newTestEnv(t)
	alice := e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)

	q := `mutation($id: ID!, $name: String!) {
		updateUser(id: $id, input: {profilePic: {fileName: $name, contentType: "image/png"}}) { user { id } }
	}`

	for _, name := range []string{"", "   ", ".", "dir/"} {
		resp := e.exec(ctxAs(alice), q, map[string]interface{}{"id": alice.ID, "name": name})
		assertErrKind(t, resp, domain.KindValidation)
	}
}

func TestUpdateUserRehashesPassword(t *testing.T) {
	e := newTestEnv(t)
	alice := e.seedUser(t, "alice", "a@b.com", "old-pw", domain.RoleUser)

	resp := e.exec(ctxAs(alice),
		`mutation($id: ID!) { updateUser(id: $id, input: {password: "new-pw"}) { user { id } } }`,
		map[string]interface{}{"id": alice.ID},
	)
	require.Empty(t, resp.Errors)

	stored, err := e.users.FindByID(context.Background(), alice.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, utils.CheckPassword("new-pw", stored.PasswordHash))
	assert.False(t, utils.CheckPassword("old-pw", stored.PasswordHash))
}

func TestUpdateUserMissing(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	resp := e.exec(ctxAs(admin),
		`mutation { updateUser(id: "ghost", input: {name: "x"}) { user { id } } }`, nil)
	assertErrKind(t, resp, domain.KindNotFound)
}

func TestFieldResolvers(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root", "root@b.com", "pw", domain.RoleAdmin)
	alice := e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)
	e.seedTask(t, "t1", alice.ID, domain.RoleAdmin)
	e.seedTask(t, "t2", alice.ID, domain.RoleUser)

	resp := e.exec(ctxAs(admin),
		`query($ids: [ID!]) { getUsers(filter: {idsIn: $ids}) { name tasks { title assignee { id } } } }`,
		map[string]interface{}{"ids": []interface{}{alice.ID}},
	)
	var out struct {
		GetUsers []struct {
			Name  *string
			Tasks []struct {
				Title    string
				Assignee struct{ ID string }
			}
		}
	}
	decodeData(t, resp, &out)
	require.Len(t, out.GetUsers, 1)
	require.Len(t, out.GetUsers[0].Tasks, 2)
	for _, task := range out.GetUsers[0].Tasks {
		assert.Equal(t, alice.ID, task.Assignee.ID)
	}
}

func TestCreateTaskSelfAssigns(t *testing.T) {
	e := newTestEnv(t)
	alice := e.seedUser(t, "alice", "a@b.com", "pw", domain.RoleUser)

	resp := e.exec(ctxAs(alice),
		`mutation { createTask(input: {title: "todo"}) { id title status createdBy assignee { id } } }`, nil)
	var out struct {
		CreateTask struct {
			ID        string
			Title     string
			Status    string
			CreatedBy string
			Assignee  struct{ ID string }
		}
	}
	decodeData(t, resp, &out)
	assert.Equal(t, "PENDING", out.CreateTask.Status)
	assert.Equal(t, "USER", out.CreateTask.CreatedBy)
	assert.Equal(t, alice.ID, out.CreateTask.Assignee.ID)
}

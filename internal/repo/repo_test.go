package repo

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskgraph/internal/domain"
	"taskgraph/pkg/utils"
)

// newTestDB opens an in-memory sqlite store pinned to a single connection so
// every query sees the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Task{}))
	return db
}

func seedUser(t *testing.T, users *UserRepo, name, email string, role domain.Role) domain.User {
	t.Helper()
	u := domain.User{
		ID:           utils.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, users.Create(context.Background(), &u))
	return u
}

func seedTask(t *testing.T, tasks *TaskRepo, title, assigneeID string, status domain.TaskStatus, createdBy domain.Role) domain.Task {
	t.Helper()
	task := domain.Task{
		ID:         utils.NewID(),
		Title:      title,
		Status:     status,
		AssigneeID: assigneeID,
		CreatedBy:  createdBy,
	}
	require.NoError(t, tasks.Create(context.Background(), &task))
	return task
}

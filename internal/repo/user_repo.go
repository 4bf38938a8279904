package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"taskgraph/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) apply(q *gorm.DB, f UserFilter) *gorm.DB {
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	if len(f.IDsIn) > 0 {
		q = q.Where("id IN ?", f.IDsIn)
	}
	if len(f.NamesIn) > 0 {
		q = q.Where("name IN ?", f.NamesIn)
	}
	if len(f.EmailsIn) > 0 {
		q = q.Where("email IN ?", f.EmailsIn)
	}
	if f.UserWithoutTasks != nil {
		if *f.UserWithoutTasks {
			q = q.Where("NOT EXISTS (SELECT 1 FROM tasks WHERE tasks.assignee_id = users.id)")
		} else {
			q = q.Where("EXISTS (SELECT 1 FROM tasks WHERE tasks.assignee_id = users.id)")
		}
	}
	if f.TaskStatus != nil {
		q = q.Where("EXISTS (SELECT 1 FROM tasks WHERE tasks.assignee_id = users.id AND tasks.status = ?)", *f.TaskStatus)
	}
	return q
}

func (r *UserRepo) List(ctx context.Context, f UserFilter, opts ListOptions) ([]domain.User, error) {
	opts = opts.normalized()
	order, err := orderClause(opts.OrderBy, userOrderColumns)
	if err != nil {
		return nil, domain.Validation(err.Error())
	}
	q := r.apply(r.db.WithContext(ctx).Model(&domain.User{}), f)
	if order != "" {
		q = q.Order(order)
	}
	var users []domain.User
	if err := q.Limit(opts.Limit).Offset(opts.Offset).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindByID returns (nil, nil) when no row matches; callers decide whether
// that is a NotFound condition.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// UpdateFields persists only the supplied columns. Returns (nil, nil) when
// the target row does not exist.
func (r *UserRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) (*domain.User, error) {
	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	// RowsAffected can legitimately be 0 on a no-op write; the re-read below
	// is what distinguishes "missing" from "unchanged".
	return r.FindByID(ctx, id)
}

// DeleteWhere removes every matching user and their tasks in one
// transaction, reporting the number of users deleted. Deleting the tasks
// alongside keeps the assignee reference invariant intact. Absent filter
// fields constrain nothing, so an all-absent filter deletes every user; that
// needs an explicit opt-out of gorm's global-delete guard.
func (r *UserRepo) DeleteWhere(ctx context.Context, f UserFilter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := r.apply(tx.Model(&domain.User{}), f).Select("id")
		if err := tx.Where("assignee_id IN (?)", sub).Delete(&domain.Task{}).Error; err != nil {
			return err
		}
		users := tx
		if f.isEmpty() {
			users = users.Session(&gorm.Session{AllowGlobalUpdate: true})
		}
		res := r.apply(users.Model(&domain.User{}), f).Delete(&domain.User{})
		count = res.RowsAffected
		return res.Error
	})
	return count, err
}

// CountByIDs reports how many of the given ids exist.
func (r *UserRepo) CountByIDs(ctx context.Context, ids []string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

// IsDuplicateKey reports whether err is a unique-constraint violation, across
// drivers.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

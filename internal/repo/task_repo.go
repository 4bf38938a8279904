package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"taskgraph/internal/domain"
)

type TaskRepo struct{ db *gorm.DB }

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) apply(q *gorm.DB, f TaskFilter) *gorm.DB {
	if len(f.IDsIn) > 0 {
		q = q.Where("id IN ?", f.IDsIn)
	}
	if len(f.TitlesIn) > 0 {
		q = q.Where("title IN ?", f.TitlesIn)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if len(f.AssigneeIn) > 0 {
		q = q.Where("assignee_id IN ?", f.AssigneeIn)
	}
	if f.CreatedBy != nil {
		q = q.Where("created_by = ?", *f.CreatedBy)
	}
	return q
}

func (r *TaskRepo) List(ctx context.Context, f TaskFilter, opts ListOptions) ([]domain.Task, error) {
	opts = opts.normalized()
	order, err := orderClause(opts.OrderBy, taskOrderColumns)
	if err != nil {
		return nil, domain.Validation(err.Error())
	}
	q := r.apply(r.db.WithContext(ctx).Model(&domain.Task{}), f)
	if order != "" {
		q = q.Order(order)
	}
	var tasks []domain.Task
	if err := q.Limit(opts.Limit).Offset(opts.Offset).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepo) ListByAssignee(ctx context.Context, assigneeID string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).Where("assignee_id = ?", assigneeID).Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepo) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// CreateBatch inserts all tasks as one multi-row INSERT. The explicit
// transaction keeps a very large batch atomic even when the session splits it.
func (r *TaskRepo) CreateBatch(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tasks).Error
	})
}

func (r *TaskRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) (*domain.Task, error) {
	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

// DeleteWhere removes every matching task. Absent filter fields constrain
// nothing, so an all-absent filter deletes every row; that needs an explicit
// opt-out of gorm's global-delete guard.
func (r *TaskRepo) DeleteWhere(ctx context.Context, f TaskFilter) (int64, error) {
	q := r.db.WithContext(ctx)
	if f.isEmpty() {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	res := r.apply(q.Model(&domain.Task{}), f).Delete(&domain.Task{})
	return res.RowsAffected, res.Error
}

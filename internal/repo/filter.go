package repo

import (
	"fmt"
	"strings"

	"taskgraph/internal/domain"
)

// Filter fields left at their zero value constrain nothing; only set fields
// become predicates, so a half-filled filter never matches against NULL.

type UserFilter struct {
	Role             *domain.Role
	IDsIn            []string
	NamesIn          []string
	EmailsIn         []string
	UserWithoutTasks *bool
	TaskStatus       *domain.TaskStatus // has at least one task with this status
}

func (f UserFilter) isEmpty() bool {
	return f.Role == nil && len(f.IDsIn) == 0 && len(f.NamesIn) == 0 &&
		len(f.EmailsIn) == 0 && f.UserWithoutTasks == nil && f.TaskStatus == nil
}

type TaskFilter struct {
	IDsIn      []string
	TitlesIn   []string
	Status     *domain.TaskStatus
	AssigneeIn []string
	CreatedBy  *domain.Role
}

func (f TaskFilter) isEmpty() bool {
	return len(f.IDsIn) == 0 && len(f.TitlesIn) == 0 && f.Status == nil &&
		len(f.AssigneeIn) == 0 && f.CreatedBy == nil
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type ListOptions struct {
	OrderBy string // "<field>_<asc|desc>", empty means store default order
	Limit   int
	Offset  int
}

func (o ListOptions) normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

var userOrderColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
}

var taskOrderColumns = map[string]string{
	"id":        "id",
	"title":     "title",
	"status":    "status",
	"createdAt": "created_at",
}

// orderClause turns "name_asc" into "name ASC", rejecting unknown fields so
// the sort spec can never smuggle SQL.
func orderClause(spec string, columns map[string]string) (string, error) {
	if spec == "" {
		return "", nil
	}
	i := strings.LastIndex(spec, "_")
	if i <= 0 || i == len(spec)-1 {
		return "", fmt.Errorf("orderBy %q: want <field>_<asc|desc>", spec)
	}
	field, dir := spec[:i], strings.ToLower(spec[i+1:])
	col, ok := columns[field]
	if !ok {
		return "", fmt.Errorf("orderBy %q: unknown field %q", spec, field)
	}
	switch dir {
	case "asc":
		return col + " ASC", nil
	case "desc":
		return col + " DESC", nil
	}
	return "", fmt.Errorf("orderBy %q: direction must be asc or desc", spec)
}

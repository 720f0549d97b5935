package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/tasky/internal/database"
)

// Patch carries the columns of a partial update. Nil fields are not written.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	DueDate     NullableTime
	UpdatedAt   time.Time
}

// Repository handles task persistence. Every query is scoped to the owning user.
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// List returns the user's tasks matching f, newest first
func (r *Repository) List(ctx context.Context, userID uuid.UUID, f Filter) ([]*Task, error) {
	var rows []database.Task
	if err := r.listQuery(&rows, userID, f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, mapDBTaskToModel(&rows[i]))
	}
	return tasks, nil
}

func (r *Repository) listQuery(dest *[]database.Task, userID uuid.UUID, f Filter) *bun.SelectQuery {
	q := r.db.NewSelect().
		Model(dest).
		Where("t.user_id = ?", userID)

	if f.Status != nil {
		q = q.Where("t.status = ?", string(*f.Status))
	}
	if f.Priority != nil {
		q = q.Where("t.priority = ?", string(*f.Priority))
	}
	if term := f.searchTerm(); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("t.title ILIKE ?", pattern).
				WhereOr("COALESCE(t.description, '') ILIKE ?", pattern)
		})
	}

	return q.OrderExpr("t.created_at DESC, t.id DESC")
}

// Get returns the task with id if it belongs to userID
func (r *Repository) Get(ctx context.Context, userID, id uuid.UUID) (*Task, error) {
	row := new(database.Task)
	err := r.db.NewSelect().
		Model(row).
		Where("t.id = ?", id).
		Where("t.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return mapDBTaskToModel(row), nil
}

// Insert stores a new task. ID and timestamps must already be assigned.
func (r *Repository) Insert(ctx context.Context, t *Task) error {
	_, err := r.db.NewInsert().
		Model(mapModelToDBTask(t)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update writes the supplied columns of p and returns the stored row
func (r *Repository) Update(ctx context.Context, userID, id uuid.UUID, p Patch) (*Task, error) {
	row := &database.Task{UpdatedAt: p.UpdatedAt}
	columns := []string{"updated_at"}

	if p.Title != nil {
		row.Title = *p.Title
		columns = append(columns, "title")
	}
	if p.Description != nil {
		row.Description = p.Description
		columns = append(columns, "description")
	}
	if p.Status != nil {
		row.Status = string(*p.Status)
		columns = append(columns, "status")
	}
	if p.Priority != nil {
		row.Priority = string(*p.Priority)
		columns = append(columns, "priority")
	}
	if p.DueDate.Set {
		row.DueDate = p.DueDate.Time
		columns = append(columns, "due_date")
	}

	err := r.db.NewUpdate().
		Model(row).
		Column(columns...).
		Where("t.id = ?", id).
		Where("t.user_id = ?", userID).
		Returning("*").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return mapDBTaskToModel(row), nil
}

// Delete removes the task with id if it belongs to userID
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("t.id = ?", id).
		Where("t.user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func mapDBTaskToModel(row *database.Task) *Task {
	return &Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Status:      Status(row.Status),
		Priority:    Priority(row.Priority),
		DueDate:     row.DueDate,
		UserID:      row.UserID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func mapModelToDBTask(t *Task) *database.Task {
	return &database.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

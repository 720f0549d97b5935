package stats

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/tasky/internal/database"
	"github.com/redmonkez12/tasky/internal/task"
)

// Repository counts rows across all users
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

type statusCount struct {
	Status string `bun:"status"`
	Count  int    `bun:"count"`
}

// CountTasks returns the number of tasks of every user
func (r *Repository) CountTasks(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().
		Model((*database.Task)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// CountTasksByStatus groups the task count by workflow state. Statuses
// without tasks are absent from the result.
func (r *Repository) CountTasksByStatus(ctx context.Context) (map[task.Status]int, error) {
	var rows []statusCount
	err := r.db.NewSelect().
		Model((*database.Task)(nil)).
		Column("t.status").
		ColumnExpr("count(*) AS count").
		Group("t.status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	counts := make(map[task.Status]int, len(rows))
	for _, row := range rows {
		counts[task.Status(row.Status)] = row.Count
	}
	return counts, nil
}

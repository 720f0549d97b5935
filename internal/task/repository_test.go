package task

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/tasky/internal/database"
)

var taskColumns = []string{"id", "title", "description", "status", "priority", "due_date", "user_id", "created_at", "updated_at"}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := database.NewBunDB(sqlDB)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewRepository(db), mock
}

func TestListQuery(t *testing.T) {
	repo, _ := newMockRepository(t)
	userID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	status := StatusDone
	search := "50%_off"

	var rows []database.Task
	q := repo.listQuery(&rows, userID, Filter{Status: &status, Search: &search}).String()

	assert.Contains(t, q, `"t"."user_id"`)
	assert.Contains(t, q, "t.user_id = '11111111-1111-1111-1111-111111111111'")
	assert.Contains(t, q, "t.status = 'done'")
	assert.NotContains(t, q, "t.priority")
	assert.Contains(t, q, `(t.title ILIKE '%50\%\_off%')`)
	assert.Contains(t, q, `OR (COALESCE(t.description, '') ILIKE '%50\%\_off%')`)
	assert.NotContains(t, q, `'%50%_off%'`)
	assert.Contains(t, q, "ORDER BY t.created_at DESC, t.id DESC")
}

func TestListQuery_NoFilters(t *testing.T) {
	repo, _ := newMockRepository(t)

	var rows []database.Task
	q := repo.listQuery(&rows, uuid.New(), Filter{}).String()

	assert.NotContains(t, q, "ILIKE")
	assert.NotContains(t, q, "t.status")

	blank := "   "
	q = repo.listQuery(&rows, uuid.New(), Filter{Search: &blank}).String()
	assert.NotContains(t, q, "ILIKE")
}

func TestRepository_List(t *testing.T) {
	repo, mock := newMockRepository(t)
	userID := uuid.New()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	desc := "details"

	mock.ExpectQuery(regexp.QuoteMeta("t.user_id = '" + userID.String() + "'")).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(uuid.New().String(), "second", desc, "todo", "high", nil, userID.String(), now.Add(time.Minute), now.Add(time.Minute)).
			AddRow(uuid.New().String(), "first", nil, "done", "low", now, userID.String(), now, now))

	tasks, err := repo.List(context.Background(), userID, Filter{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "second", tasks[0].Title)
	require.NotNil(t, tasks[0].Description)
	assert.Equal(t, desc, *tasks[0].Description)
	assert.Equal(t, PriorityHigh, tasks[0].Priority)
	assert.Nil(t, tasks[0].DueDate)

	assert.Nil(t, tasks[1].Description)
	assert.Equal(t, StatusDone, tasks[1].Status)
	require.NotNil(t, tasks[1].DueDate)
	assert.Equal(t, userID, tasks[1].UserID)
}

func TestRepository_Get_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`t.id = `)).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	_, err := repo.Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Insert(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// nil optional columns are sent as DEFAULT and read back
	mock.ExpectQuery(`INSERT INTO "tasks" .*DEFAULT.* RETURNING "description", "due_date"`).
		WillReturnRows(sqlmock.NewRows([]string{"description", "due_date"}).AddRow(nil, nil))

	task := &Task{
		ID:        uuid.New(),
		Title:     "new",
		Status:    StatusTodo,
		Priority:  PriorityMedium,
		UserID:    uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Insert(context.Background(), task))
	assert.Nil(t, task.Description)
	assert.Nil(t, task.DueDate)
}

func TestRepository_Insert_AllColumns(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	desc := "two litres"

	mock.ExpectExec(`INSERT INTO "tasks" .*'Buy milk', 'two litres', 'todo', 'medium'`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &Task{
		ID:          uuid.New(),
		Title:       "Buy milk",
		Description: &desc,
		Status:      StatusTodo,
		Priority:    PriorityMedium,
		DueDate:     &now,
		UserID:      uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
}

func TestRepository_Insert_Error(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "tasks"`)).
		WillReturnError(assert.AnError)

	err := repo.Insert(context.Background(), &Task{ID: uuid.New(), Title: "x", UserID: uuid.New()})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRepository_Update_OnlySuppliedColumns(t *testing.T) {
	repo, mock := newMockRepository(t)
	userID, id := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	title := "renamed"

	mock.ExpectQuery(`UPDATE "tasks" AS "t" SET "updated_at" = .*"title" = 'renamed'.*"due_date" = NULL.*RETURNING \*`).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(id.String(), title, nil, "todo", "medium", nil, userID.String(), now, now.Add(time.Hour)))

	got, err := repo.Update(context.Background(), userID, id, Patch{
		Title:     &title,
		DueDate:   NullTime(),
		UpdatedAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, now.Add(time.Hour), got.UpdatedAt)
}

func TestRepository_Update_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "tasks"`)).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	_, err := repo.Update(context.Background(), uuid.New(), uuid.New(), Patch{UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Delete(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "tasks"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), uuid.New(), uuid.New()))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "tasks"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New(), uuid.New()), ErrNotFound)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

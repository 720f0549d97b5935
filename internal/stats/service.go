package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/tasky/internal/logging"
	"github.com/redmonkez12/tasky/internal/task"
)

const cacheKey = "stats:summary"

// Stats is the public summary shown on the landing page
type Stats struct {
	TotalTasks    int                 `json:"total_tasks"`
	TotalUsers    int                 `json:"total_users"`
	TasksByStatus map[task.Status]int `json:"tasks_by_status"`
}

func emptyStats() *Stats {
	s := &Stats{TasksByStatus: make(map[task.Status]int, len(task.Statuses))}
	for _, status := range task.Statuses {
		s.TasksByStatus[status] = 0
	}
	return s
}

type TaskCounter interface {
	CountTasks(ctx context.Context) (int, error)
	CountTasksByStatus(ctx context.Context) (map[task.Status]int, error)
}

type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// Service computes the summary and keeps it in Redis for ttl
type Service struct {
	tasks  TaskCounter
	users  UserCounter
	cache  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewService(tasks TaskCounter, users UserCounter, cache *redis.Client, ttl time.Duration, logger *logging.Logger) *Service {
	return &Service{
		tasks:  tasks,
		users:  users,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached summary, recomputing it when the cache is cold.
// Storage failures yield zeroed stats and are never cached.
func (s *Service) Get(ctx context.Context) *Stats {
	logger := logging.FromContext(ctx, s.logger)

	if cached, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
		var st Stats
		if err := json.Unmarshal(cached, &st); err == nil {
			return &st
		}
		logger.Warn("discarding malformed stats cache entry")
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("failed to read stats cache", "error", err)
	}

	st, err := Collect(ctx, s.tasks, s.users)
	if err != nil {
		logger.Error("failed to compute stats", "error", err)
		return emptyStats()
	}

	if data, err := json.Marshal(st); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, s.ttl).Err(); err != nil {
			logger.Warn("failed to write stats cache", "error", err)
		}
	}

	return st
}

// Collect counts the summary straight from storage
func Collect(ctx context.Context, tasks TaskCounter, users UserCounter) (*Stats, error) {
	st := emptyStats()

	var err error
	if st.TotalTasks, err = tasks.CountTasks(ctx); err != nil {
		return nil, err
	}
	if st.TotalUsers, err = users.Count(ctx); err != nil {
		return nil, err
	}

	byStatus, err := tasks.CountTasksByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for status, n := range byStatus {
		if status.Valid() {
			st.TasksByStatus[status] = n
		}
	}

	return st, nil
}

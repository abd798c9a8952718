package services

import (
	"context"
	"fmt"
	"log/slog"

	"dops/internal/core"
	"dops/internal/storage"
)

// TaskService orchestrates billable task operations: default rate
// resolution, price derivation and settlement updates.
type TaskService struct {
	storage *storage.SQLiteRepository
}

func NewTaskService(storage *storage.SQLiteRepository) *TaskService {
	return &TaskService{storage: storage}
}

// PrepareTask fills derived fields on a task before it is persisted.
// A zero rate falls back to the category default from settings; hours
// and price are always recomputed from the entered duration so stored
// values can never drift from their inputs.
func PrepareTask(t core.Task, defaults core.Settings) (core.Task, error) {
	t.Managers = core.NormalizeManagers(t.Managers)
	if t.Rate.Won == 0 {
		t.Rate = defaults.RateFor(t.Category)
	}
	if t.Status == "" {
		t.Status = core.SettlePending
	}

	hours, price, err := core.PriceTask(t.Duration, t.Rate)
	if err != nil {
		return core.Task{}, err
	}
	t.Hours = hours
	t.Price = price

	if err := t.Validate(); err != nil {
		return core.Task{}, err
	}
	return t, nil
}

func (s *TaskService) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	settings, err := s.storage.GetSettings(ctx)
	if err != nil {
		return core.Task{}, fmt.Errorf("load rate settings: %w", err)
	}
	t, err = PrepareTask(t, settings)
	if err != nil {
		return core.Task{}, err
	}

	// Resolve the client up front so a bad ID surfaces as not-found
	// instead of a raw FK violation.
	if _, err := s.storage.GetClient(ctx, t.ClientID); err != nil {
		return core.Task{}, fmt.Errorf("client %d: %w", t.ClientID, err)
	}

	created, err := s.storage.CreateTask(ctx, t)
	if err != nil {
		return core.Task{}, fmt.Errorf("save task: %w", err)
	}

	slog.InfoContext(ctx, "Task created",
		"id", created.ID,
		"client_id", created.ClientID,
		"category", created.Category,
		"price_won", created.Price.Won)
	return created, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, t core.Task) (core.Task, error) {
	settings, err := s.storage.GetSettings(ctx)
	if err != nil {
		return core.Task{}, fmt.Errorf("load rate settings: %w", err)
	}
	t, err = PrepareTask(t, settings)
	if err != nil {
		return core.Task{}, err
	}
	if _, err := s.storage.GetClient(ctx, t.ClientID); err != nil {
		return core.Task{}, fmt.Errorf("client %d: %w", t.ClientID, err)
	}

	if err := s.storage.UpdateTask(ctx, t); err != nil {
		return core.Task{}, fmt.Errorf("update task: %w", err)
	}
	return s.storage.GetTask(ctx, t.ID)
}

func (s *TaskService) GetTask(ctx context.Context, id int64) (core.Task, error) {
	return s.storage.GetTask(ctx, id)
}

func (s *TaskService) ListTasks(ctx context.Context, f storage.TaskFilter) ([]core.Task, error) {
	return s.storage.ListTasks(ctx, f)
}

func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	return s.storage.DeleteTask(ctx, id)
}

// SettleTasks flips the settlement status of the given tasks in one
// statement and reports how many rows changed.
func (s *TaskService) SettleTasks(ctx context.Context, ids []int64, status core.SettleStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, core.ErrMissingField
	}
	if err := status.Validate(); err != nil {
		return 0, err
	}

	affected, err := s.storage.BulkUpdateSettleStatus(ctx, ids, status)
	if err != nil {
		return 0, fmt.Errorf("bulk settle: %w", err)
	}

	slog.InfoContext(ctx, "Settlement status updated",
		"requested", len(ids),
		"affected", affected,
		"status", status)
	return affected, nil
}

// SummarizeTasks aggregates the filtered tasks along the given axis.
func (s *TaskService) SummarizeTasks(ctx context.Context, f storage.TaskFilter, key core.SummaryKey) ([]core.Bucket, error) {
	tasks, err := s.storage.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	return core.SummarizeTasks(tasks, key), nil
}

package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
)

var (
	ErrEmptyTaskID    = errors.New("task ID cannot be empty")
	ErrEmptyCreatorID = errors.New("creator ID cannot be empty")
	ErrTaskNotPlaced  = errors.New("task has no placement result")
)

// Task is a packing job: a space, the items placed into it and the strategy
// version that placed them. Tasks are immutable once created.
type Task struct {
	ID              uuid.UUID              `json:"id"`
	CreatorID       uuid.UUID              `json:"creator_id"`
	WorkerID        *uuid.UUID             `json:"worker_id,omitempty"`
	Space           placement.Space        `json:"space_info"`
	Items           []placement.PlacedItem `json:"items"`
	StrategyName    string                 `json:"strategy_name"`
	StrategyVersion uint64                 `json:"strategy_version"`
	CreatedAt       time.Time              `json:"created_at"`
}

// NewTask builds a task from a verified placement result. Items are stored in
// order_id order.
func NewTask(creatorID uuid.UUID, workerID *uuid.UUID, space placement.Space, result *placement.Result) (*Task, error) {
	if result == nil {
		return nil, ErrTaskNotPlaced
	}

	items := make([]placement.PlacedItem, len(result.Items))
	copy(items, result.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].OrderID < items[j].OrderID })

	task := &Task{
		ID:              uuid.New(),
		CreatorID:       creatorID,
		WorkerID:        workerID,
		Space:           space,
		Items:           items,
		StrategyName:    result.StrategyName,
		StrategyVersion: result.StrategyVersion,
		CreatedAt:       time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks the task's identifiers and space.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.CreatorID == uuid.Nil {
		return ErrEmptyCreatorID
	}
	if t.WorkerID != nil && *t.WorkerID == uuid.Nil {
		return fmt.Errorf("%w: worker ID", ErrInvalidID)
	}
	return t.Space.Validate()
}

// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"gorm.io/gorm"

	"github.com/agentwire/agentwire"
)

// taskRecord is the GORM row model. The full task document is stored
// as JSON; id, context id and state are lifted into columns so lookups
// and filters stay in SQL.
type taskRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	ContextID string `gorm:"index;size:64"`
	State     string `gorm:"index;size:32"`
	Document  []byte `gorm:"type:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (taskRecord) TableName() string { return "tasks" }

func newTaskRecord(t *agentwire.Task) (*taskRecord, error) {
	doc, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	return &taskRecord{
		ID:        t.ID,
		ContextID: t.ContextID,
		State:     string(t.Status.State),
		Document:  doc,
	}, nil
}

func (r *taskRecord) toTask() (*agentwire.Task, error) {
	var t agentwire.Task
	if err := json.Unmarshal(r.Document, &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", r.ID, err)
	}
	return &t, nil
}

// DatabaseStore is a Store backed by a SQL database through GORM.
type DatabaseStore struct {
	db *gorm.DB
}

var _ Store = (*DatabaseStore)(nil)

// NewDatabaseStore creates a store on an open GORM connection.
func NewDatabaseStore(db *gorm.DB) (*DatabaseStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	return &DatabaseStore{db: db}, nil
}

// Save writes a task, inserting or replacing by id.
func (s *DatabaseStore) Save(ctx context.Context, t *agentwire.Task) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	record, err := newTaskRecord(t)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// Get returns the task with the given id.
func (s *DatabaseStore) Get(ctx context.Context, taskID string) (*agentwire.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task id cannot be empty")
	}

	var record taskRecord
	err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, agentwire.ErrTaskNotFound.WithMessage("task %s not found", taskID)
		}
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return record.toTask()
}

// Delete removes a task.
func (s *DatabaseStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task id cannot be empty")
	}

	result := s.db.WithContext(ctx).Where("id = ?", taskID).Delete(&taskRecord{})
	if result.Error != nil {
		return fmt.Errorf("delete task %s: %w", taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		return agentwire.ErrTaskNotFound.WithMessage("task %s not found", taskID)
	}
	return nil
}

// List returns tasks ordered by creation time, optionally filtered by
// context id.
func (s *DatabaseStore) List(ctx context.Context, contextID string, limit, offset int) ([]*agentwire.Task, error) {
	db := s.db.WithContext(ctx).Order("created_at")
	if contextID != "" {
		db = db.Where("context_id = ?", contextID)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	var records []taskRecord
	if err := db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]*agentwire.Task, len(records))
	for i := range records {
		t, err := records[i].toTask()
		if err != nil {
			return nil, err
		}
		tasks[i] = t
	}
	return tasks, nil
}

// Count returns the number of tasks, optionally filtered by context id.
func (s *DatabaseStore) Count(ctx context.Context, contextID string) (int64, error) {
	db := s.db.WithContext(ctx).Model(&taskRecord{})
	if contextID != "" {
		db = db.Where("context_id = ?", contextID)
	}

	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// ListByState returns tasks currently in the given lifecycle state.
// The idle watchdog uses this to find stalled work after a restart.
func (s *DatabaseStore) ListByState(ctx context.Context, state agentwire.TaskState) ([]*agentwire.Task, error) {
	var records []taskRecord
	err := s.db.WithContext(ctx).Where("state = ?", string(state)).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks by state %s: %w", state, err)
	}

	tasks := make([]*agentwire.Task, len(records))
	for i := range records {
		t, err := records[i].toTask()
		if err != nil {
			return nil, err
		}
		tasks[i] = t
	}
	return tasks, nil
}

// Initialize creates or migrates the tasks table.
func (s *DatabaseStore) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&taskRecord{}); err != nil {
		return fmt.Errorf("migrate tasks table: %w", err)
	}
	return nil
}

// Close is a no-op; the GORM connection is owned by the caller.
func (s *DatabaseStore) Close(ctx context.Context) error { return nil }

// Transaction runs fn against a store bound to a database transaction.
func (s *DatabaseStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DatabaseStore{db: tx})
	})
}

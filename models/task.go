package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm"
)

const (
	TaskTypeTierEvaluation = "tier_evaluation"
	TaskTypeDataSync       = "data_sync"
	TaskTypeReport         = "report"
	TaskTypeManual         = "manual"
)

const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// legal status moves; terminal states have no entry
var taskTransitions = map[string][]string{
	TaskStatusPending: {TaskStatusRunning, TaskStatusCancelled},
	TaskStatusRunning: {TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled},
}

type Task struct {
	ID            int        `gorm:"primary_key" json:"id"`
	BankId        string     `gorm:"index;size:64;not null" json:"bank_id"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	TaskType      string     `gorm:"index;size:20;not null" json:"task_type"`
	Status        string     `gorm:"index;size:20;not null;default:'pending'" json:"status"`
	Priority      string     `gorm:"size:10;not null;default:'medium'" json:"priority"`
	Assignee      string     `gorm:"size:100" json:"assignee"`
	DueDate       *time.Time `json:"due_date"`
	Progress      int        `gorm:"not null;default:0" json:"progress"`
	ResultMessage string     `gorm:"type:text" json:"result_message"`
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedBy     string     `gorm:"size:100" json:"created_by"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTask struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	TaskType    string     `json:"task_type" binding:"required"`
	Priority    string     `json:"priority"`
	Assignee    string     `json:"assignee"`
	DueDate     *time.Time `json:"due_date"`
}

type TaskStatusInput struct {
	Status        string `json:"status" binding:"required"`
	Progress      *int   `json:"progress"`
	ResultMessage string `json:"result_message"`
}

type TaskFilter struct {
	Status   string `form:"status"`
	TaskType string `form:"task_type"`
	Priority string `form:"priority"`
	Search   string `form:"search"`
	PageInput
}

func (t Task) GetBankId() string {
	return t.BankId
}

func (t Task) IsTerminal() bool {
	_, ok := taskTransitions[t.Status]
	return !ok
}

func canMoveTask(from string, to string) bool {
	for _, s := range taskTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (input *NewTask) validate() error {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return utils.NewValidationError("title", "is required")
	}
	switch input.TaskType {
	case TaskTypeTierEvaluation, TaskTypeDataSync, TaskTypeReport, TaskTypeManual:
	default:
		return utils.NewValidationError("task_type", "must be tier_evaluation, data_sync, report or manual")
	}
	if input.Priority == "" {
		input.Priority = TaskPriorityMedium
	}
	switch input.Priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
	default:
		return utils.NewValidationError("priority", "must be low, medium or high")
	}
	return nil
}

func CreateTask(ctx context.Context, input *NewTask) (*Task, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	_, userName := actorFromContext(ctx)
	task := Task{
		BankId:      bankId,
		Title:       input.Title,
		Description: input.Description,
		TaskType:    input.TaskType,
		Status:      TaskStatusPending,
		Priority:    input.Priority,
		Assignee:    input.Assignee,
		DueDate:     input.DueDate,
		CreatedBy:   userName,
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, task.ID, "tasks", task, "created task "+task.Title)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask edits the descriptive fields of a task that has not finished.
func UpdateTask(ctx context.Context, id int, input *NewTask) (*Task, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	task, err := utils.FetchModel[Task](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if task.IsTerminal() {
		return nil, fmt.Errorf("%w: task is %s", utils.ErrorInvalidTransition, task.Status)
	}
	before := *task

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(task).Updates(map[string]interface{}{
			"Title":       input.Title,
			"Description": input.Description,
			"TaskType":    input.TaskType,
			"Priority":    input.Priority,
			"Assignee":    input.Assignee,
			"DueDate":     input.DueDate,
		}).Error; err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, id, "tasks", before, task, "updated task "+task.Title)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func DeleteTask(ctx context.Context, id int) (*Task, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[Task](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if result.Status == TaskStatusRunning {
		return nil, fmt.Errorf("%w: task is running", utils.ErrorInvalidTransition)
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, id, "tasks", result, "deleted task "+result.Title)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetTask(ctx context.Context, id int) (*Task, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Task](ctx, bankId, id)
}

func ListTasks(ctx context.Context, filter *TaskFilter) (*Page[Task], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &TaskFilter{}
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&Task{}).Where("bank_id = ?", bankId)
	if !allFilter(filter.Status) {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if !allFilter(filter.TaskType) {
		dbCtx = dbCtx.Where("task_type = ?", filter.TaskType)
	}
	if !allFilter(filter.Priority) {
		dbCtx = dbCtx.Where("priority = ?", filter.Priority)
	}
	if !utils.IsBlank(filter.Search) {
		pattern := likePattern(filter.Search)
		dbCtx = dbCtx.Where("LOWER(title) LIKE ? OR LOWER(assignee) LIKE ?", pattern, pattern)
	}
	return paginate[Task](dbCtx, filter.PageInput, "id DESC")
}

// UpdateTaskStatus moves a task along its lifecycle.
// Completed, failed and cancelled are terminal.
func UpdateTaskStatus(ctx context.Context, id int, input *TaskStatusInput) (*Task, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	task, err := utils.FetchModel[Task](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if !canMoveTask(task.Status, input.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", utils.ErrorInvalidTransition, task.Status, input.Status)
	}
	if input.Progress != nil && (*input.Progress < 0 || *input.Progress > 100) {
		return nil, utils.NewValidationError("progress", "must be between 0 and 100")
	}

	now := time.Now()
	changes := map[string]interface{}{"status": input.Status}
	if input.ResultMessage != "" {
		changes["result_message"] = input.ResultMessage
	}
	if input.Progress != nil {
		changes["progress"] = *input.Progress
	}
	switch input.Status {
	case TaskStatusRunning:
		changes["started_at"] = &now
	case TaskStatusCompleted:
		changes["progress"] = 100
		changes["completed_at"] = &now
	case TaskStatusFailed, TaskStatusCancelled:
		changes["completed_at"] = &now
	}

	from := task.Status
	err = runInTx(ctx, func(tx *gorm.DB) error {
		updated := tx.Model(&Task{}).
			Where("id = ? AND bank_id = ? AND status = ?", id, bankId, from).
			Updates(changes)
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return utils.ErrorConflict
		}
		return SaveHistoryUpdate(tx, id, "tasks",
			map[string]string{"status": from}, map[string]string{"status": input.Status},
			fmt.Sprintf("task %s %s", task.Title, input.Status))
	})
	if err != nil {
		return nil, err
	}
	return GetTask(ctx, id)
}

// SetTaskProgress updates progress of a running task without a history entry.
func SetTaskProgress(ctx context.Context, id int, progress int) error {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return err
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return config.GetDB().WithContext(ctx).Model(&Task{}).
		Where("id = ? AND bank_id = ? AND status = ?", id, bankId, TaskStatusRunning).
		Update("progress", progress).Error
}

package models_test

import (
	"testing"

	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusTransitions(t *testing.T) {
	ctx := openTestDB(t)

	cases := []struct {
		name  string
		path  []string
		final string
		bad   string
	}{
		{"complete", []string{models.TaskStatusRunning, models.TaskStatusCompleted}, models.TaskStatusCompleted, models.TaskStatusRunning},
		{"fail", []string{models.TaskStatusRunning, models.TaskStatusFailed}, models.TaskStatusFailed, models.TaskStatusCompleted},
		{"cancel pending", []string{models.TaskStatusCancelled}, models.TaskStatusCancelled, models.TaskStatusRunning},
	}
	for _, tc := range cases {
		task, err := models.CreateTask(ctx, &models.NewTask{Title: tc.name, TaskType: models.TaskTypeManual})
		require.NoError(t, err, tc.name)
		assert.Equal(t, models.TaskStatusPending, task.Status)
		assert.Equal(t, models.TaskPriorityMedium, task.Priority)

		for _, status := range tc.path {
			task, err = models.UpdateTaskStatus(ctx, task.ID, &models.TaskStatusInput{Status: status})
			require.NoError(t, err, "%s: -> %s", tc.name, status)
		}
		assert.Equal(t, tc.final, task.Status, tc.name)
		assert.True(t, task.IsTerminal(), tc.name)
		require.NotNil(t, task.CompletedAt, tc.name)

		_, err = models.UpdateTaskStatus(ctx, task.ID, &models.TaskStatusInput{Status: tc.bad})
		require.ErrorIs(t, err, utils.ErrorInvalidTransition, tc.name)
	}
}

func TestTaskProgress(t *testing.T) {
	ctx := openTestDB(t)
	task, err := models.CreateTask(ctx, &models.NewTask{Title: "sync", TaskType: models.TaskTypeDataSync, Priority: models.TaskPriorityHigh})
	require.NoError(t, err)

	// progress only moves on running tasks
	require.NoError(t, models.SetTaskProgress(ctx, task.ID, 40))
	stored, err := models.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Progress)

	_, err = models.UpdateTaskStatus(ctx, task.ID, &models.TaskStatusInput{Status: models.TaskStatusRunning})
	require.NoError(t, err)
	require.NoError(t, models.SetTaskProgress(ctx, task.ID, 140))
	stored, err = models.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Progress)

	bad := 101
	_, err = models.UpdateTaskStatus(ctx, task.ID, &models.TaskStatusInput{Status: models.TaskStatusFailed, Progress: &bad})
	var validationErr *utils.ValidationError
	require.ErrorAs(t, err, &validationErr)

	done, err := models.UpdateTaskStatus(ctx, task.ID, &models.TaskStatusInput{Status: models.TaskStatusCompleted, ResultMessage: "12 rows"})
	require.NoError(t, err)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, "12 rows", done.ResultMessage)
}

func TestCreateTaskValidation(t *testing.T) {
	ctx := openTestDB(t)
	inputs := []models.NewTask{
		{Title: "  ", TaskType: models.TaskTypeManual},
		{Title: "x", TaskType: "cleanup"},
		{Title: "x", TaskType: models.TaskTypeReport, Priority: "urgent"},
	}
	for _, input := range inputs {
		_, err := models.CreateTask(ctx, &input)
		var validationErr *utils.ValidationError
		require.ErrorAs(t, err, &validationErr, "%+v", input)
	}
}

func TestUserRoleUnmarshal(t *testing.T) {
	cases := map[string]models.UserRole{`"A"`: models.UserRoleAdmin, `"admin"`: models.UserRoleAdmin, `" custom "`: models.UserRoleCustom}
	for raw, want := range cases {
		var role models.UserRole
		require.NoError(t, role.UnmarshalJSON([]byte(raw)), raw)
		assert.Equal(t, want, role, raw)
	}
	var role models.UserRole
	assert.Error(t, role.UnmarshalJSON([]byte(`"root"`)))
	assert.Error(t, role.UnmarshalJSON([]byte(`1`)))
}

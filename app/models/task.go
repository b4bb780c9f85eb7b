package models

// Task is a stored task row. It belongs to exactly one repository.
type Task struct {
	ID           int64  `json:"task_id"`
	RepositoryID int64  `json:"repository_id"`
	Name         string `json:"name"`
	Completed    bool   `json:"completed"`
	Priority     string `json:"priority"`
	Assignee     string `json:"assignee"`
	DueDate      *Date  `json:"due_date"`
}

// Subtask is a stored subtask row. It belongs to exactly one task.
type Subtask struct {
	ID        int64  `json:"subtask_id"`
	TaskID    int64  `json:"task_id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// TaskInput is a task as submitted by a client.
// Completed is a pointer so a missing value can be told apart from false.
type TaskInput struct {
	Name      string         `json:"name"`
	Completed *bool          `json:"completed"`
	Priority  string         `json:"priority"`
	Assignee  string         `json:"assignee"`
	DueDate   *Date          `json:"due_date"`
	Subtasks  []SubtaskInput `json:"subtasks"`
}

// SubtaskInput is a subtask as submitted by a client.
type SubtaskInput struct {
	Name      string `json:"name"`
	Completed *bool  `json:"completed"`
}

// TaskTree is a task with its subtasks, as returned to clients.
type TaskTree struct {
	ID        int64         `json:"task_id"`
	Name      string        `json:"name"`
	Completed bool          `json:"completed"`
	Priority  string        `json:"priority"`
	Assignee  string        `json:"assignee"`
	DueDate   *Date         `json:"due_date"`
	Subtasks  []SubtaskTree `json:"subtasks"`
}

// SubtaskTree is a subtask as returned to clients.
type SubtaskTree struct {
	ID        int64  `json:"subtask_id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

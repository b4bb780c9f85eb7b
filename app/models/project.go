package models

// Project is a stored project row, the root of a tree.
type Project struct {
	ID   int64  `json:"project_id"`
	Name string `json:"name"`
}

// Repository is a stored repository row. It belongs to exactly one project.
type Repository struct {
	ID        int64  `json:"repository_id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
}

// ProjectSummary identifies a project without its children.
type ProjectSummary struct {
	ID   int64  `json:"project_id"`
	Name string `json:"name"`
}

// ProjectInput is a full project tree as submitted by a client.
// Name is nil when the field was absent from the request body.
type ProjectInput struct {
	Name         *string           `json:"name"`
	Repositories []RepositoryInput `json:"repositories"`
}

// RepositoryInput is a repository as submitted by a client.
type RepositoryInput struct {
	Name  string      `json:"name"`
	Tasks []TaskInput `json:"tasks"`
}

// ProjectTree is a project with all of its descendants.
type ProjectTree struct {
	ID           int64            `json:"project_id"`
	Name         string           `json:"name"`
	Repositories []RepositoryTree `json:"repositories"`
}

// RepositoryTree is a repository with its tasks.
type RepositoryTree struct {
	ID    int64      `json:"repository_id"`
	Name  string     `json:"name"`
	Tasks []TaskTree `json:"tasks"`
}

// DeleteResult reports which element a delete removed.
type DeleteResult struct {
	Kind Kind  `json:"element_type"`
	ID   int64 `json:"element_id"`
}

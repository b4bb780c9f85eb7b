package services

import (
	"context"

	"listify/app/models"
	"listify/app/serializer"
)

// Store persists project trees. Every method is one unit of work: it runs
// in its own transaction, and on any error nothing it did is kept.
//
// Lookups of absent ids return *models.NotFoundError. Every other failure
// is a *Fault.
type Store interface {
	// AddProjectTree inserts plan as a new project.
	AddProjectTree(ctx context.Context, plan serializer.Plan) (models.ProjectSummary, error)

	// OverwriteProjectTree replaces every descendant of project id with
	// those in plan. The project is renamed to plan.Project.Name only when
	// rename is set.
	OverwriteProjectTree(ctx context.Context, id int64, plan serializer.Plan, rename bool) (models.ProjectSummary, error)

	// GetProjectRows loads every row of project id.
	GetProjectRows(ctx context.Context, id int64) (serializer.Rows, error)

	// ListProjects returns every project ordered by id.
	ListProjects(ctx context.Context) ([]models.ProjectSummary, error)

	// DeleteElement deletes the row of kind with id and all of its
	// descendants. It returns the id of the project the row belonged to.
	DeleteElement(ctx context.Context, kind models.Kind, id int64) (int64, error)

	Close(ctx context.Context) error
}

// Package serializer converts between nested project trees and the flat
// rows a store persists.
//
// Decompose turns a submitted tree into a Plan: one slice per level, each
// entry pointing at its parent by index into the level above. Stores insert
// a Plan level by level in slice order, so generated ids grow in input
// order. Recompose goes the other way and orders children by id.
package serializer

import (
	"cmp"
	"slices"

	"listify/app/models"
)

// Linked is a record waiting to be inserted under a parent. Parent indexes
// the parent's entry in the previous level of the same Plan; for
// repositories it is always 0, the plan's project.
type Linked[T any] struct {
	Record T
	Parent int
}

// Plan is a decomposed project tree. Records carry no ids; the store
// assigns them and resolves Parent indexes to the generated parent ids.
type Plan struct {
	Project      models.Project
	Repositories []Linked[models.Repository]
	Tasks        []Linked[models.Task]
	Subtasks     []Linked[models.Subtask]
}

// Len counts the rows the plan will insert, the project included.
func (p Plan) Len() int {
	return 1 + len(p.Repositories) + len(p.Tasks) + len(p.Subtasks)
}

// Decompose flattens in without modifying it. Missing child arrays yield
// no rows and a missing project name yields an empty Project.Name.
func Decompose(in models.ProjectInput) Plan {
	var plan Plan
	if in.Name != nil {
		plan.Project.Name = *in.Name
	}

	for _, repo := range in.Repositories {
		plan.Repositories = append(plan.Repositories, Linked[models.Repository]{
			Record: models.Repository{Name: repo.Name},
		})
		repoIdx := len(plan.Repositories) - 1

		for _, task := range repo.Tasks {
			plan.Tasks = append(plan.Tasks, Linked[models.Task]{
				Record: models.Task{
					Name:      task.Name,
					Completed: task.Completed != nil && *task.Completed,
					Priority:  task.Priority,
					Assignee:  task.Assignee,
					DueDate:   copyDate(task.DueDate),
				},
				Parent: repoIdx,
			})
			taskIdx := len(plan.Tasks) - 1

			for _, sub := range task.Subtasks {
				plan.Subtasks = append(plan.Subtasks, Linked[models.Subtask]{
					Record: models.Subtask{
						Name:      sub.Name,
						Completed: sub.Completed != nil && *sub.Completed,
					},
					Parent: taskIdx,
				})
			}
		}
	}
	return plan
}

func copyDate(d *models.Date) *models.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Rows is every stored row of one project tree.
type Rows struct {
	Project      models.Project
	Repositories []models.Repository
	Tasks        []models.Task
	Subtasks     []models.Subtask
}

// Recompose nests rows under their parents. Children are ordered by
// ascending id whatever order rows arrive in, and rows whose parent is not
// part of the tree are left out. Empty levels are empty slices, never nil.
func Recompose(rows Rows) models.ProjectTree {
	subtasks := sortedByID(rows.Subtasks, func(s models.Subtask) int64 { return s.ID })
	subsByTask := make(map[int64][]models.SubtaskTree)
	for _, s := range subtasks {
		subsByTask[s.TaskID] = append(subsByTask[s.TaskID], models.SubtaskTree{
			ID:        s.ID,
			Name:      s.Name,
			Completed: s.Completed,
		})
	}

	tasks := sortedByID(rows.Tasks, func(t models.Task) int64 { return t.ID })
	tasksByRepo := make(map[int64][]models.TaskTree)
	for _, t := range tasks {
		tasksByRepo[t.RepositoryID] = append(tasksByRepo[t.RepositoryID], models.TaskTree{
			ID:        t.ID,
			Name:      t.Name,
			Completed: t.Completed,
			Priority:  t.Priority,
			Assignee:  t.Assignee,
			DueDate:   copyDate(t.DueDate),
			Subtasks:  orEmpty(subsByTask[t.ID]),
		})
	}

	tree := models.ProjectTree{
		ID:           rows.Project.ID,
		Name:         rows.Project.Name,
		Repositories: []models.RepositoryTree{},
	}
	for _, r := range sortedByID(rows.Repositories, func(r models.Repository) int64 { return r.ID }) {
		if r.ProjectID != rows.Project.ID {
			continue
		}
		tree.Repositories = append(tree.Repositories, models.RepositoryTree{
			ID:    r.ID,
			Name:  r.Name,
			Tasks: orEmpty(tasksByRepo[r.ID]),
		})
	}
	return tree
}

func sortedByID[T any](rows []T, id func(T) int64) []T {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

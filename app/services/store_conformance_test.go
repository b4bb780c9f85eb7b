package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"listify/app/models"
)

func ptr[T any](v T) *T { return &v }

// ignoreIDs compares trees by structure and order only.
var ignoreIDs = cmp.Options{
	cmpopts.IgnoreFields(models.ProjectTree{}, "ID"),
	cmpopts.IgnoreFields(models.RepositoryTree{}, "ID"),
	cmpopts.IgnoreFields(models.TaskTree{}, "ID"),
	cmpopts.IgnoreFields(models.SubtaskTree{}, "ID"),
	cmpopts.EquateEmpty(),
}

// expectedTree is the tree a read should return after storing in under name.
func expectedTree(name string, in models.ProjectInput) models.ProjectTree {
	tree := models.ProjectTree{Name: name}
	for _, r := range in.Repositories {
		rt := models.RepositoryTree{Name: r.Name}
		for _, t := range r.Tasks {
			tt := models.TaskTree{
				Name:      t.Name,
				Completed: *t.Completed,
				Priority:  t.Priority,
				Assignee:  t.Assignee,
				DueDate:   t.DueDate,
			}
			for _, s := range t.Subtasks {
				tt.Subtasks = append(tt.Subtasks, models.SubtaskTree{Name: s.Name, Completed: *s.Completed})
			}
			rt.Tasks = append(rt.Tasks, tt)
		}
		tree.Repositories = append(tree.Repositories, rt)
	}
	return tree
}

// scenarioInput is the single-path tree P/R/T/S.
func scenarioInput() models.ProjectInput {
	return models.ProjectInput{
		Name: ptr("P"),
		Repositories: []models.RepositoryInput{{
			Name: "R",
			Tasks: []models.TaskInput{{
				Name:      "T",
				Completed: ptr(false),
				Priority:  "low",
				Assignee:  "a",
				DueDate:   &models.Date{Year: 2024, Month: 1, Day: 1},
				Subtasks:  []models.SubtaskInput{{Name: "S", Completed: ptr(false)}},
			}},
		}},
	}
}

// wideInput has several children at every level so ordering is observable.
func wideInput(name string) models.ProjectInput {
	in := models.ProjectInput{Name: ptr(name)}
	for r := 0; r < 3; r++ {
		repo := models.RepositoryInput{Name: fmt.Sprintf("%s-repo-%d", name, 3-r)}
		for ti := 0; ti < 3; ti++ {
			task := models.TaskInput{
				Name:      fmt.Sprintf("task-%d-%d", r, 3-ti),
				Completed: ptr(ti%2 == 0),
				Priority:  []string{"high", "low", "medium"}[ti],
				Assignee:  "dev",
			}
			for s := 0; s < ti; s++ {
				task.Subtasks = append(task.Subtasks, models.SubtaskInput{
					Name:      fmt.Sprintf("sub-%d-%d-%d", r, ti, s),
					Completed: ptr(s == 0),
				})
			}
			repo.Tasks = append(repo.Tasks, task)
		}
		in.Repositories = append(in.Repositories, repo)
	}
	return in
}

func assertTree(t *testing.T, want, got models.ProjectTree) {
	t.Helper()
	if diff := cmp.Diff(want, got, ignoreIDs); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

// runStoreConformance checks the gateway contract against any Store.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	newService := func(t *testing.T) *ProjectService {
		return NewProjectService(newStore(t), nil, 0)
	}

	t.Run("ConcreteScenario", func(t *testing.T) {
		svc := newService(t)
		in := scenarioInput()

		summary, err := svc.AddProjectTree(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "P", summary.Name)
		assert.NotZero(t, summary.ID)

		tree, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)
		assert.Equal(t, summary.ID, tree.ID)
		assertTree(t, expectedTree("P", in), tree)
	})

	t.Run("RoundTripPreservesOrder", func(t *testing.T) {
		svc := newService(t)
		in := wideInput("wide")

		summary, err := svc.AddProjectTree(ctx, in)
		require.NoError(t, err)

		tree, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)
		assertTree(t, expectedTree("wide", in), tree)

		again, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)
		assert.Equal(t, tree, again, "repeated reads must be identical")
	})

	t.Run("EmptyProject", func(t *testing.T) {
		svc := newService(t)
		summary, err := svc.AddProjectTree(ctx, models.ProjectInput{Name: ptr("bare")})
		require.NoError(t, err)

		tree, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)
		assert.Equal(t, "bare", tree.Name)
		assert.NotNil(t, tree.Repositories)
		assert.Empty(t, tree.Repositories)
	})

	t.Run("GetUnknownProject", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.GetProjectTree(ctx, 424242)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrNotFound))

		var nf *models.NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, models.KindProject, nf.Kind)
		assert.Equal(t, int64(424242), nf.ID)
	})

	t.Run("ListProjects", func(t *testing.T) {
		svc := newService(t)

		list, err := svc.ListProjects(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)

		a, err := svc.AddProjectTree(ctx, models.ProjectInput{Name: ptr("alpha")})
		require.NoError(t, err)
		b, err := svc.AddProjectTree(ctx, wideInput("beta"))
		require.NoError(t, err)

		list, err = svc.ListProjects(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.ProjectSummary{a, b}, list)
	})

	t.Run("OverwriteReplacesSubtree", func(t *testing.T) {
		svc := newService(t)
		summary, err := svc.AddProjectTree(ctx, wideInput("before"))
		require.NoError(t, err)
		before, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)

		next := scenarioInput()
		next.Name = ptr("after")
		got, err := svc.OverwriteProjectTree(ctx, summary.ID, next)
		require.NoError(t, err)
		assert.Equal(t, models.ProjectSummary{ID: summary.ID, Name: "after"}, got)

		tree, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)
		assert.Equal(t, summary.ID, tree.ID)
		assertTree(t, expectedTree("after", next), tree)

		// The old children are gone, not just hidden.
		oldTask := before.Repositories[0].Tasks[0].ID
		_, err = svc.DeleteElement(ctx, "Task", oldTask)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("OverwriteIsIdempotent", func(t *testing.T) {
		svc := newService(t)
		summary, err := svc.AddProjectTree(ctx, scenarioInput())
		require.NoError(t, err)

		in := wideInput("x")
		for i := 0; i < 2; i++ {
			_, err := svc.OverwriteProjectTree(ctx, summary.ID, in)
			require.NoError(t, err)
			tree, err := svc.GetProjectTree(ctx, summary.ID)
			require.NoError(t, err)
			assertTree(t, expectedTree("x", in), tree)
		}
	})

	t.Run("OverwriteKeepsNameWhenAbsent", func(t *testing.T) {
		svc := newService(t)
		summary, err := svc.AddProjectTree(ctx, scenarioInput())
		require.NoError(t, err)

		in := wideInput("ignored")
		in.Name = nil
		got, err := svc.OverwriteProjectTree(ctx, summary.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "P", got.Name)

		tree, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)
		assertTree(t, expectedTree("P", in), tree)
	})

	t.Run("OverwriteToEmpty", func(t *testing.T) {
		svc := newService(t)
		summary, err := svc.AddProjectTree(ctx, wideInput("full"))
		require.NoError(t, err)

		_, err = svc.OverwriteProjectTree(ctx, summary.ID, models.ProjectInput{})
		require.NoError(t, err)

		tree, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)
		assert.Equal(t, "full", tree.Name)
		assert.Empty(t, tree.Repositories)
	})

	t.Run("OverwriteUnknownProject", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.OverwriteProjectTree(ctx, 9999, scenarioInput())
		assert.True(t, errors.Is(err, models.ErrNotFound))

		list, err := svc.ListProjects(ctx)
		require.NoError(t, err)
		assert.Empty(t, list, "overwrite of a missing project must not create one")
	})

	t.Run("DeleteRepositoryCascades", func(t *testing.T) {
		svc := newService(t)
		in := wideInput("cascade")
		summary, err := svc.AddProjectTree(ctx, in)
		require.NoError(t, err)
		tree, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)

		victim := tree.Repositories[1]
		res, err := svc.DeleteElement(ctx, "repository", victim.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DeleteResult{Kind: models.KindRepository, ID: victim.ID}, res)

		after, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)
		want := expectedTree("cascade", in)
		want.Repositories = append(want.Repositories[:1:1], want.Repositories[2:]...)
		assertTree(t, want, after)

		for _, task := range victim.Tasks {
			_, err := svc.DeleteElement(ctx, "Task", task.ID)
			assert.True(t, errors.Is(err, models.ErrNotFound), "task %d should be gone", task.ID)
			for _, sub := range task.Subtasks {
				_, err := svc.DeleteElement(ctx, "Subtask", sub.ID)
				assert.True(t, errors.Is(err, models.ErrNotFound), "subtask %d should be gone", sub.ID)
			}
		}
	})

	t.Run("DeleteTaskAndSubtask", func(t *testing.T) {
		svc := newService(t)
		in := wideInput("leaves")
		summary, err := svc.AddProjectTree(ctx, in)
		require.NoError(t, err)
		tree, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)

		sub := tree.Repositories[0].Tasks[2].Subtasks[0]
		_, err = svc.DeleteElement(ctx, "SUBTASK", sub.ID)
		require.NoError(t, err)

		task := tree.Repositories[2].Tasks[1]
		_, err = svc.DeleteElement(ctx, "task", task.ID)
		require.NoError(t, err)

		want := expectedTree("leaves", in)
		want.Repositories[0].Tasks[2].Subtasks = want.Repositories[0].Tasks[2].Subtasks[1:]
		want.Repositories[2].Tasks = append(want.Repositories[2].Tasks[:1:1], want.Repositories[2].Tasks[2:]...)

		after, err := svc.GetProjectTree(ctx, summary.ID)
		require.NoError(t, err)
		assertTree(t, want, after)
	})

	t.Run("DeleteProjectCascades", func(t *testing.T) {
		svc := newService(t)
		keep, err := svc.AddProjectTree(ctx, scenarioInput())
		require.NoError(t, err)
		drop, err := svc.AddProjectTree(ctx, wideInput("drop"))
		require.NoError(t, err)
		dropTree, err := svc.GetProjectTree(ctx, drop.ID)
		require.NoError(t, err)

		_, err = svc.DeleteElement(ctx, "Project", drop.ID)
		require.NoError(t, err)

		_, err = svc.GetProjectTree(ctx, drop.ID)
		assert.True(t, errors.Is(err, models.ErrNotFound))

		_, err = svc.DeleteElement(ctx, "Repository", dropTree.Repositories[0].ID)
		assert.True(t, errors.Is(err, models.ErrNotFound))

		list, err := svc.ListProjects(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.ProjectSummary{keep}, list)

		kept, err := svc.GetProjectTree(ctx, keep.ID)
		require.NoError(t, err)
		assertTree(t, expectedTree("P", scenarioInput()), kept)
	})

	t.Run("DeleteNotFoundAndInvalidKind", func(t *testing.T) {
		svc := newService(t)

		_, err := svc.DeleteElement(ctx, "Task", 31337)
		var nf *models.NotFoundError
		require.True(t, errors.As(err, &nf), "got %v", err)
		assert.Equal(t, "Task with id 31337 not found", nf.Error())

		_, err = svc.DeleteElement(ctx, "Widget", 1)
		assert.True(t, errors.Is(err, models.ErrInvalidKind))
	})

	t.Run("ConcurrentDisjointProjects", func(t *testing.T) {
		svc := newService(t)

		const n = 8
		ids := make([]int64, n)
		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				summary, err := svc.AddProjectTree(ctx, wideInput(fmt.Sprintf("p%d", i)))
				ids[i] = summary.ID
				return err
			})
		}
		require.NoError(t, g.Wait())

		for i, id := range ids {
			tree, err := svc.GetProjectTree(ctx, id)
			require.NoError(t, err)
			name := fmt.Sprintf("p%d", i)
			assertTree(t, expectedTree(name, wideInput(name)), tree)
		}
	})
}

package services

import (
	"context"
	"encoding/json"
	"time"

	"listify/app/cache"
	"listify/app/logging"
	"listify/app/models"
	"listify/app/serializer"
)

// ProjectService handles project tree operations.
type ProjectService struct {
	store Store
	cache cache.Cache
	ttl   time.Duration
}

// NewProjectService creates a new instance of ProjectService. A nil cache
// disables caching.
func NewProjectService(store Store, tc cache.Cache, ttl time.Duration) *ProjectService {
	if tc == nil {
		tc = cache.NewNullCache()
	}
	return &ProjectService{store: store, cache: tc, ttl: ttl}
}

// AddProjectTree validates input and stores it as a new project.
func (s *ProjectService) AddProjectTree(ctx context.Context, input models.ProjectInput) (models.ProjectSummary, error) {
	if err := input.Validate(true); err != nil {
		return models.ProjectSummary{}, err
	}

	plan := serializer.Decompose(input)
	summary, err := s.store.AddProjectTree(ctx, plan)
	if err != nil {
		return models.ProjectSummary{}, err
	}

	s.invalidate(ctx, summary.ID)
	logging.FromContext(ctx).Info("project created", "project_id", summary.ID, "rows", plan.Len())
	return summary, nil
}

// OverwriteProjectTree replaces the whole subtree of project id with input.
// The project keeps its name when input has none.
func (s *ProjectService) OverwriteProjectTree(ctx context.Context, id int64, input models.ProjectInput) (models.ProjectSummary, error) {
	if err := input.Validate(false); err != nil {
		return models.ProjectSummary{}, err
	}

	plan := serializer.Decompose(input)
	summary, err := s.store.OverwriteProjectTree(ctx, id, plan, input.Name != nil)
	if err != nil {
		return models.ProjectSummary{}, err
	}

	s.invalidate(ctx, id)
	logging.FromContext(ctx).Info("project overwritten", "project_id", id, "rows", plan.Len())
	return summary, nil
}

// GetProjectTree returns project id with all of its descendants.
func (s *ProjectService) GetProjectTree(ctx context.Context, id int64) (models.ProjectTree, error) {
	logger := logging.FromContext(ctx)
	key := cache.ProjectKey(id)

	data, hit, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warn("cache read failed", "key", key, "err", err)
	case hit:
		var tree models.ProjectTree
		if err := json.Unmarshal(data, &tree); err == nil {
			logger.Debug("project served from cache", "project_id", id)
			return tree, nil
		}
		logger.Warn("discarding unreadable cache entry", "key", key)
	}

	// The generation is read before the store so that an invalidation
	// committed while rows are loading makes the fill below a no-op.
	gen, genErr := s.cache.Generation(ctx, key)
	if genErr != nil {
		logger.Warn("cache read failed", "key", key, "err", genErr)
	}

	rows, err := s.store.GetProjectRows(ctx, id)
	if err != nil {
		return models.ProjectTree{}, err
	}
	tree := serializer.Recompose(rows)

	if genErr != nil {
		return tree, nil
	}
	if data, err := json.Marshal(tree); err == nil {
		stored, err := s.cache.SetIfGeneration(ctx, key, gen, data, s.ttl)
		switch {
		case err != nil:
			logger.Warn("cache write failed", "key", key, "err", err)
		case !stored:
			logger.Debug("skipped cache fill after concurrent invalidation", "project_id", id)
		}
	}
	return tree, nil
}

// ListProjects returns a summary of every project.
func (s *ProjectService) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	return s.store.ListProjects(ctx)
}

// DeleteElement deletes the element of the named kind and everything
// below it. kind is matched case-insensitively.
func (s *ProjectService) DeleteElement(ctx context.Context, kind string, id int64) (models.DeleteResult, error) {
	k, err := models.ParseKind(kind)
	if err != nil {
		return models.DeleteResult{}, err
	}

	projectID, err := s.store.DeleteElement(ctx, k, id)
	if err != nil {
		return models.DeleteResult{}, err
	}

	s.invalidate(ctx, projectID)
	logging.FromContext(ctx).Info("element deleted", "kind", k, "id", id, "project_id", projectID)
	return models.DeleteResult{Kind: k, ID: id}, nil
}

// Close releases the store and the cache.
func (s *ProjectService) Close(ctx context.Context) error {
	cerr := s.cache.Close()
	if err := s.store.Close(ctx); err != nil {
		return err
	}
	return cerr
}

func (s *ProjectService) invalidate(ctx context.Context, projectID int64) {
	key := cache.ProjectKey(projectID)
	if err := s.cache.Delete(ctx, key); err != nil {
		logging.FromContext(ctx).Warn("cache invalidation failed", "key", key, "err", err)
	}
}

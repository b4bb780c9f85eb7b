package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"listify/app/models"
	"listify/app/serializer"
)

// Dialect selects the SQL flavour a SQLStore speaks.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// SQLStore keeps project trees in four relational tables linked by
// cascading foreign keys.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore creates the schema on db if it is missing. The store takes
// ownership of db and closes it on Close.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	var schema []string
	switch dialect {
	case DialectSQLite:
		schema = sqliteSchema
	case DialectMySQL:
		schema = mysqlSchema
	default:
		return nil, fmt.Errorf("unsupported SQL dialect %q", dialect)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// Close closes the database.
func (s *SQLStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// AddProjectTree inserts the project row, then every descendant, in one
// transaction.
func (s *SQLStore) AddProjectTree(ctx context.Context, plan serializer.Plan) (models.ProjectSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ProjectSummary{}, fault("begin add project", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO project (name) VALUES (?)`, plan.Project.Name)
	if err != nil {
		return models.ProjectSummary{}, fault("insert project", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.ProjectSummary{}, fault("insert project", err)
	}

	if err := insertChildren(ctx, tx, id, plan); err != nil {
		return models.ProjectSummary{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.ProjectSummary{}, fault("commit add project", err)
	}
	return models.ProjectSummary{ID: id, Name: plan.Project.Name}, nil
}

// OverwriteProjectTree deletes every repository of the project (cascading
// to tasks and subtasks) and inserts plan's subtree in the same
// transaction, so a failure leaves the old tree in place.
func (s *SQLStore) OverwriteProjectTree(ctx context.Context, id int64, plan serializer.Plan, rename bool) (models.ProjectSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ProjectSummary{}, fault("begin overwrite project", err)
	}
	defer func() { _ = tx.Rollback() }()

	var name string
	err = tx.QueryRowContext(ctx, `SELECT name FROM project WHERE project_id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProjectSummary{}, &models.NotFoundError{Kind: models.KindProject, ID: id}
	}
	if err != nil {
		return models.ProjectSummary{}, fault("load project", err)
	}

	if rename {
		if _, err := tx.ExecContext(ctx, `UPDATE project SET name = ? WHERE project_id = ?`, plan.Project.Name, id); err != nil {
			return models.ProjectSummary{}, fault("rename project", err)
		}
		name = plan.Project.Name
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM repository WHERE project_id = ?`, id); err != nil {
		return models.ProjectSummary{}, fault("delete old subtree", err)
	}

	if err := insertChildren(ctx, tx, id, plan); err != nil {
		return models.ProjectSummary{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.ProjectSummary{}, fault("commit overwrite project", err)
	}
	return models.ProjectSummary{ID: id, Name: name}, nil
}

// insertChildren inserts plan's repositories, tasks and subtasks level by
// level in slice order, resolving each Parent index to the id generated for
// it a level earlier.
func insertChildren(ctx context.Context, tx *sql.Tx, projectID int64, plan serializer.Plan) error {
	repoIDs := make([]int64, len(plan.Repositories))
	if len(plan.Repositories) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO repository (project_id, name) VALUES (?, ?)`)
		if err != nil {
			return fault("prepare repository insert", err)
		}
		defer stmt.Close()

		for i, r := range plan.Repositories {
			if repoIDs[i], err = insertRow(ctx, stmt, projectID, r.Record.Name); err != nil {
				return fault("insert repository", err)
			}
		}
	}

	taskIDs := make([]int64, len(plan.Tasks))
	if len(plan.Tasks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO task (repository_id, name, completed, priority, assignee, due_date) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fault("prepare task insert", err)
		}
		defer stmt.Close()

		for i, t := range plan.Tasks {
			rec := t.Record
			if taskIDs[i], err = insertRow(ctx, stmt, repoIDs[t.Parent], rec.Name, rec.Completed, rec.Priority, rec.Assignee, dateValue(rec.DueDate)); err != nil {
				return fault("insert task", err)
			}
		}
	}

	if len(plan.Subtasks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO subtask (task_id, name, completed) VALUES (?, ?, ?)`)
		if err != nil {
			return fault("prepare subtask insert", err)
		}
		defer stmt.Close()

		for _, st := range plan.Subtasks {
			if _, err := insertRow(ctx, stmt, taskIDs[st.Parent], st.Record.Name, st.Record.Completed); err != nil {
				return fault("insert subtask", err)
			}
		}
	}
	return nil
}

func insertRow(ctx context.Context, stmt *sql.Stmt, args ...any) (int64, error) {
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func dateValue(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDate(ns sql.NullString) (*models.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := models.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetProjectRows reads the project and its descendants in one read-only
// transaction so the rows form a consistent snapshot.
func (s *SQLStore) GetProjectRows(ctx context.Context, id int64) (serializer.Rows, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return serializer.Rows{}, fault("begin get project", err)
	}
	defer func() { _ = tx.Rollback() }()

	var rows serializer.Rows
	err = tx.QueryRowContext(ctx, `SELECT project_id, name FROM project WHERE project_id = ?`, id).
		Scan(&rows.Project.ID, &rows.Project.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return serializer.Rows{}, &models.NotFoundError{Kind: models.KindProject, ID: id}
	}
	if err != nil {
		return serializer.Rows{}, fault("load project", err)
	}

	if rows.Repositories, err = queryRepositories(ctx, tx, id); err != nil {
		return serializer.Rows{}, fault("load repositories", err)
	}
	if rows.Tasks, err = queryTasks(ctx, tx, id); err != nil {
		return serializer.Rows{}, fault("load tasks", err)
	}
	if rows.Subtasks, err = querySubtasks(ctx, tx, id); err != nil {
		return serializer.Rows{}, fault("load subtasks", err)
	}

	if err := tx.Commit(); err != nil {
		return serializer.Rows{}, fault("commit get project", err)
	}
	return rows, nil
}

func queryRepositories(ctx context.Context, tx *sql.Tx, projectID int64) ([]models.Repository, error) {
	res, err := tx.QueryContext(ctx, `
		SELECT repository_id, project_id, name
		FROM repository
		WHERE project_id = ?
		ORDER BY repository_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var repos []models.Repository
	for res.Next() {
		var r models.Repository
		if err := res.Scan(&r.ID, &r.ProjectID, &r.Name); err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, res.Err()
}

func queryTasks(ctx context.Context, tx *sql.Tx, projectID int64) ([]models.Task, error) {
	res, err := tx.QueryContext(ctx, `
		SELECT t.task_id, t.repository_id, t.name, t.completed, t.priority, t.assignee, t.due_date
		FROM task t
		JOIN repository r ON r.repository_id = t.repository_id
		WHERE r.project_id = ?
		ORDER BY t.task_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var tasks []models.Task
	for res.Next() {
		var (
			t   models.Task
			due sql.NullString
		)
		if err := res.Scan(&t.ID, &t.RepositoryID, &t.Name, &t.Completed, &t.Priority, &t.Assignee, &due); err != nil {
			return nil, err
		}
		if t.DueDate, err = scanDate(due); err != nil {
			return nil, fmt.Errorf("task %d: %w", t.ID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, res.Err()
}

func querySubtasks(ctx context.Context, tx *sql.Tx, projectID int64) ([]models.Subtask, error) {
	res, err := tx.QueryContext(ctx, `
		SELECT s.subtask_id, s.task_id, s.name, s.completed
		FROM subtask s
		JOIN task t ON t.task_id = s.task_id
		JOIN repository r ON r.repository_id = t.repository_id
		WHERE r.project_id = ?
		ORDER BY s.subtask_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var subtasks []models.Subtask
	for res.Next() {
		var st models.Subtask
		if err := res.Scan(&st.ID, &st.TaskID, &st.Name, &st.Completed); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, st)
	}
	return subtasks, res.Err()
}

// ListProjects returns every project ordered by id; an empty store yields
// an empty, non-nil slice.
func (s *SQLStore) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	res, err := s.db.QueryContext(ctx, `SELECT project_id, name FROM project ORDER BY project_id`)
	if err != nil {
		return nil, fault("list projects", err)
	}
	defer res.Close()

	projects := []models.ProjectSummary{}
	for res.Next() {
		var p models.ProjectSummary
		if err := res.Scan(&p.ID, &p.Name); err != nil {
			return nil, fault("list projects", err)
		}
		projects = append(projects, p)
	}
	if err := res.Err(); err != nil {
		return nil, fault("list projects", err)
	}
	return projects, nil
}

// ownerQuery finds the project a row of kind belongs to.
func ownerQuery(kind models.Kind) (string, error) {
	switch kind {
	case models.KindProject:
		return `SELECT project_id FROM project WHERE project_id = ?`, nil
	case models.KindRepository:
		return `SELECT project_id FROM repository WHERE repository_id = ?`, nil
	case models.KindTask:
		return `SELECT r.project_id
			FROM task t
			JOIN repository r ON r.repository_id = t.repository_id
			WHERE t.task_id = ?`, nil
	case models.KindSubtask:
		return `SELECT r.project_id
			FROM subtask s
			JOIN task t ON t.task_id = s.task_id
			JOIN repository r ON r.repository_id = t.repository_id
			WHERE s.subtask_id = ?`, nil
	default:
		return "", &models.InvalidKindError{Value: kind.String()}
	}
}

// DeleteElement deletes one row. Its descendants go with it through the
// ON DELETE CASCADE foreign keys.
func (s *SQLStore) DeleteElement(ctx context.Context, kind models.Kind, id int64) (int64, error) {
	query, err := ownerQuery(kind)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fault("begin delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	var projectID int64
	err = tx.QueryRowContext(ctx, query, id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &models.NotFoundError{Kind: kind, ID: id}
	}
	if err != nil {
		return 0, fault("find "+kind.Table(), err)
	}

	// Table and column names come from the closed Kind enumeration.
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, kind.Table(), kind.PrimaryKey()), id)
	if err != nil {
		return 0, fault("delete "+kind.Table(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fault("delete "+kind.Table(), err)
	}
	if n == 0 {
		return 0, &models.NotFoundError{Kind: kind, ID: id}
	}

	if err := tx.Commit(); err != nil {
		return 0, fault("commit delete", err)
	}
	return projectID, nil
}

var _ Store = (*SQLStore)(nil)

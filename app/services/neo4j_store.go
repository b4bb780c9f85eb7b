package services

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"listify/app/models"
	"listify/app/serializer"
)

// Graph layout:
//
//	(:Project)-[:HAS_REPOSITORY]->(:Repository)-[:HAS_TASK]->(:Task)-[:HAS_SUBTASK]->(:Subtask)
//
// Every node has an integer id property drawn from a (:Sequence {label})
// counter, so ids look the same as with the SQL backends.
const descendantRels = "HAS_REPOSITORY|HAS_TASK|HAS_SUBTASK"

var neo4jConstraints = []string{
	"CREATE CONSTRAINT project_id IF NOT EXISTS FOR (n:Project) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT repository_id IF NOT EXISTS FOR (n:Repository) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT task_id IF NOT EXISTS FOR (n:Task) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT subtask_id IF NOT EXISTS FOR (n:Subtask) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT sequence_label IF NOT EXISTS FOR (n:Sequence) REQUIRE n.label IS UNIQUE",
}

// Neo4jStore keeps project trees as a graph.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jStore creates the uniqueness constraints the store relies on.
// The store takes ownership of driver and closes it on Close.
func NewNeo4jStore(ctx context.Context, driver neo4j.DriverWithContext) (*Neo4jStore, error) {
	for _, c := range neo4jConstraints {
		if _, err := neo4j.ExecuteQuery(ctx, driver, c, nil, neo4j.EagerResultTransformer); err != nil {
			return nil, fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return &Neo4jStore{driver: driver}, nil
}

// Close closes the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// execute runs work in an explicit transaction. Explicit transactions are
// not retried by the driver, so a fault surfaces exactly once.
func (s *Neo4jStore) execute(ctx context.Context, mode neo4j.AccessMode, op string, work func(neo4j.ExplicitTransaction) error) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
	defer session.Close(ctx)

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return fault(op, err)
	}
	defer tx.Close(ctx)

	if err := work(tx); err != nil {
		_ = tx.Rollback(ctx)
		return fault(op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fault(op, err)
	}
	return nil
}

func collect(ctx context.Context, tx neo4j.ExplicitTransaction, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

// nextIDs reserves n consecutive ids for label and returns the first.
func nextIDs(ctx context.Context, tx neo4j.ExplicitTransaction, label string, n int) (int64, error) {
	res, err := tx.Run(ctx,
		"MERGE (s:Sequence {label: $label}) "+
			"ON CREATE SET s.value = 0 "+
			"SET s.value = s.value + $n "+
			"RETURN s.value AS value",
		map[string]any{"label": label, "n": int64(n)},
	)
	if err != nil {
		return 0, err
	}
	record, err := res.Single(ctx)
	if err != nil {
		return 0, err
	}
	last, _, err := neo4j.GetRecordValue[int64](record, "value")
	if err != nil {
		return 0, err
	}
	return last - int64(n) + 1, nil
}

// createNodes runs an UNWIND insert and checks every row produced a node.
// A row whose parent does not match creates nothing, which would silently
// drop a subtree.
func createNodes(ctx context.Context, tx neo4j.ExplicitTransaction, cypher string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}
	res, err := tx.Run(ctx, cypher, map[string]any{"rows": rows})
	if err != nil {
		return err
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return err
	}
	if created := summary.Counters().NodesCreated(); created != len(rows) {
		return fmt.Errorf("created %d of %d nodes: parent missing", created, len(rows))
	}
	return nil
}

// insertSubtree creates plan's descendants under project id.
func insertSubtree(ctx context.Context, tx neo4j.ExplicitTransaction, projectID int64, plan serializer.Plan) error {
	repoIDs, err := reserve(ctx, tx, models.KindRepository, len(plan.Repositories))
	if err != nil {
		return err
	}
	rows := make([]any, len(plan.Repositories))
	for i, r := range plan.Repositories {
		rows[i] = map[string]any{"id": repoIDs[i], "parent": projectID, "name": r.Record.Name}
	}
	if err := createNodes(ctx, tx,
		"UNWIND $rows AS row "+
			"MATCH (p:Project {id: row.parent}) "+
			"CREATE (p)-[:HAS_REPOSITORY]->(:Repository {id: row.id, name: row.name})",
		rows); err != nil {
		return fmt.Errorf("insert repositories: %w", err)
	}

	taskIDs, err := reserve(ctx, tx, models.KindTask, len(plan.Tasks))
	if err != nil {
		return err
	}
	rows = make([]any, len(plan.Tasks))
	for i, t := range plan.Tasks {
		rows[i] = map[string]any{
			"id":        taskIDs[i],
			"parent":    repoIDs[t.Parent],
			"name":      t.Record.Name,
			"completed": t.Record.Completed,
			"priority":  t.Record.Priority,
			"assignee":  t.Record.Assignee,
			"due_date":  dateValue(t.Record.DueDate),
		}
	}
	if err := createNodes(ctx, tx,
		"UNWIND $rows AS row "+
			"MATCH (r:Repository {id: row.parent}) "+
			"CREATE (r)-[:HAS_TASK]->(:Task {id: row.id, name: row.name, completed: row.completed, "+
			"priority: row.priority, assignee: row.assignee, due_date: row.due_date})",
		rows); err != nil {
		return fmt.Errorf("insert tasks: %w", err)
	}

	subIDs, err := reserve(ctx, tx, models.KindSubtask, len(plan.Subtasks))
	if err != nil {
		return err
	}
	rows = make([]any, len(plan.Subtasks))
	for i, st := range plan.Subtasks {
		rows[i] = map[string]any{
			"id":        subIDs[i],
			"parent":    taskIDs[st.Parent],
			"name":      st.Record.Name,
			"completed": st.Record.Completed,
		}
	}
	if err := createNodes(ctx, tx,
		"UNWIND $rows AS row "+
			"MATCH (t:Task {id: row.parent}) "+
			"CREATE (t)-[:HAS_SUBTASK]->(:Subtask {id: row.id, name: row.name, completed: row.completed})",
		rows); err != nil {
		return fmt.Errorf("insert subtasks: %w", err)
	}
	return nil
}

// reserve allocates n ids for kind in ascending order.
func reserve(ctx context.Context, tx neo4j.ExplicitTransaction, kind models.Kind, n int) ([]int64, error) {
	if n == 0 {
		return nil, nil
	}
	first, err := nextIDs(ctx, tx, kind.Label(), n)
	if err != nil {
		return nil, fmt.Errorf("allocate %s ids: %w", kind, err)
	}
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = first + int64(i)
	}
	return ids, nil
}

// AddProjectTree creates the project node and its subtree in one transaction.
func (s *Neo4jStore) AddProjectTree(ctx context.Context, plan serializer.Plan) (models.ProjectSummary, error) {
	var summary models.ProjectSummary
	err := s.execute(ctx, neo4j.AccessModeWrite, "add project", func(tx neo4j.ExplicitTransaction) error {
		id, err := nextIDs(ctx, tx, models.KindProject.Label(), 1)
		if err != nil {
			return err
		}
		if _, err := collect(ctx, tx,
			"CREATE (p:Project {id: $id, name: $name})",
			map[string]any{"id": id, "name": plan.Project.Name},
		); err != nil {
			return err
		}
		if err := insertSubtree(ctx, tx, id, plan); err != nil {
			return err
		}
		summary = models.ProjectSummary{ID: id, Name: plan.Project.Name}
		return nil
	})
	return summary, err
}

// OverwriteProjectTree detaches and deletes every repository of the
// project with its descendants, then creates plan's subtree.
func (s *Neo4jStore) OverwriteProjectTree(ctx context.Context, id int64, plan serializer.Plan, rename bool) (models.ProjectSummary, error) {
	var summary models.ProjectSummary
	err := s.execute(ctx, neo4j.AccessModeWrite, "overwrite project", func(tx neo4j.ExplicitTransaction) error {
		records, err := collect(ctx, tx,
			"MATCH (p:Project {id: $id}) RETURN p.name AS name",
			map[string]any{"id": id},
		)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return &models.NotFoundError{Kind: models.KindProject, ID: id}
		}
		name, _, err := neo4j.GetRecordValue[string](records[0], "name")
		if err != nil {
			return err
		}

		if rename {
			if _, err := collect(ctx, tx,
				"MATCH (p:Project {id: $id}) SET p.name = $name",
				map[string]any{"id": id, "name": plan.Project.Name},
			); err != nil {
				return err
			}
			name = plan.Project.Name
		}

		if _, err := collect(ctx, tx,
			"MATCH (:Project {id: $id})-[:HAS_REPOSITORY]->(r:Repository) "+
				"OPTIONAL MATCH (r)-[:"+descendantRels+"*]->(d) "+
				"DETACH DELETE r, d",
			map[string]any{"id": id},
		); err != nil {
			return err
		}

		if err := insertSubtree(ctx, tx, id, plan); err != nil {
			return err
		}
		summary = models.ProjectSummary{ID: id, Name: name}
		return nil
	})
	return summary, err
}

// GetProjectRows reads the project and each level of its subtree in one
// read transaction.
func (s *Neo4jStore) GetProjectRows(ctx context.Context, id int64) (serializer.Rows, error) {
	var rows serializer.Rows
	err := s.execute(ctx, neo4j.AccessModeRead, "get project", func(tx neo4j.ExplicitTransaction) error {
		params := map[string]any{"id": id}

		records, err := collect(ctx, tx, "MATCH (p:Project {id: $id}) RETURN p.name AS name", params)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return &models.NotFoundError{Kind: models.KindProject, ID: id}
		}
		rows.Project.ID = id
		if rows.Project.Name, _, err = neo4j.GetRecordValue[string](records[0], "name"); err != nil {
			return err
		}

		records, err = collect(ctx, tx,
			"MATCH (:Project {id: $id})-[:HAS_REPOSITORY]->(r:Repository) "+
				"RETURN r.id AS id, r.name AS name ORDER BY r.id",
			params)
		if err != nil {
			return err
		}
		for _, rec := range records {
			r := models.Repository{ProjectID: id}
			if r.ID, _, err = neo4j.GetRecordValue[int64](rec, "id"); err != nil {
				return err
			}
			if r.Name, _, err = neo4j.GetRecordValue[string](rec, "name"); err != nil {
				return err
			}
			rows.Repositories = append(rows.Repositories, r)
		}

		records, err = collect(ctx, tx,
			"MATCH (:Project {id: $id})-[:HAS_REPOSITORY]->(r:Repository)-[:HAS_TASK]->(t:Task) "+
				"RETURN r.id AS parent, t.id AS id, t.name AS name, t.completed AS completed, "+
				"coalesce(t.priority, '') AS priority, coalesce(t.assignee, '') AS assignee, t.due_date AS due_date "+
				"ORDER BY t.id",
			params)
		if err != nil {
			return err
		}
		for _, rec := range records {
			t, err := taskFromRecord(rec)
			if err != nil {
				return err
			}
			rows.Tasks = append(rows.Tasks, t)
		}

		records, err = collect(ctx, tx,
			"MATCH (:Project {id: $id})-[:HAS_REPOSITORY]->(:Repository)-[:HAS_TASK]->(t:Task)-[:HAS_SUBTASK]->(s:Subtask) "+
				"RETURN t.id AS parent, s.id AS id, s.name AS name, s.completed AS completed "+
				"ORDER BY s.id",
			params)
		if err != nil {
			return err
		}
		for _, rec := range records {
			var st models.Subtask
			if st.TaskID, _, err = neo4j.GetRecordValue[int64](rec, "parent"); err != nil {
				return err
			}
			if st.ID, _, err = neo4j.GetRecordValue[int64](rec, "id"); err != nil {
				return err
			}
			if st.Name, _, err = neo4j.GetRecordValue[string](rec, "name"); err != nil {
				return err
			}
			if st.Completed, _, err = neo4j.GetRecordValue[bool](rec, "completed"); err != nil {
				return err
			}
			rows.Subtasks = append(rows.Subtasks, st)
		}
		return nil
	})
	if err != nil {
		return serializer.Rows{}, err
	}
	return rows, nil
}

func taskFromRecord(rec *neo4j.Record) (models.Task, error) {
	var (
		t   models.Task
		err error
	)
	if t.RepositoryID, _, err = neo4j.GetRecordValue[int64](rec, "parent"); err != nil {
		return t, err
	}
	if t.ID, _, err = neo4j.GetRecordValue[int64](rec, "id"); err != nil {
		return t, err
	}
	if t.Name, _, err = neo4j.GetRecordValue[string](rec, "name"); err != nil {
		return t, err
	}
	if t.Completed, _, err = neo4j.GetRecordValue[bool](rec, "completed"); err != nil {
		return t, err
	}
	if t.Priority, _, err = neo4j.GetRecordValue[string](rec, "priority"); err != nil {
		return t, err
	}
	if t.Assignee, _, err = neo4j.GetRecordValue[string](rec, "assignee"); err != nil {
		return t, err
	}
	due, isNil, err := neo4j.GetRecordValue[string](rec, "due_date")
	if err != nil {
		return t, err
	}
	if !isNil && due != "" {
		d, err := models.ParseDate(due)
		if err != nil {
			return t, fmt.Errorf("task %d: %w", t.ID, err)
		}
		t.DueDate = &d
	}
	return t, nil
}

// ListProjects returns every project ordered by id.
func (s *Neo4jStore) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	projects := []models.ProjectSummary{}
	err := s.execute(ctx, neo4j.AccessModeRead, "list projects", func(tx neo4j.ExplicitTransaction) error {
		records, err := collect(ctx, tx, "MATCH (p:Project) RETURN p.id AS id, p.name AS name ORDER BY p.id", nil)
		if err != nil {
			return err
		}
		for _, rec := range records {
			var p models.ProjectSummary
			if p.ID, _, err = neo4j.GetRecordValue[int64](rec, "id"); err != nil {
				return err
			}
			if p.Name, _, err = neo4j.GetRecordValue[string](rec, "name"); err != nil {
				return err
			}
			projects = append(projects, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// DeleteElement deletes a node and every node reachable from it through
// the containment relationships.
func (s *Neo4jStore) DeleteElement(ctx context.Context, kind models.Kind, id int64) (int64, error) {
	if !kind.Valid() {
		return 0, &models.InvalidKindError{Value: kind.String()}
	}
	// The label comes from the closed Kind enumeration.
	label := kind.Label()

	var projectID int64
	err := s.execute(ctx, neo4j.AccessModeWrite, "delete "+kind.Table(), func(tx neo4j.ExplicitTransaction) error {
		params := map[string]any{"id": id}

		records, err := collect(ctx, tx,
			"MATCH (n:"+label+" {id: $id}) "+
				"OPTIONAL MATCH (p:Project)-[:"+descendantRels+"*0..3]->(n) "+
				"RETURN p.id AS project_id",
			params)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return &models.NotFoundError{Kind: kind, ID: id}
		}
		if projectID, _, err = neo4j.GetRecordValue[int64](records[0], "project_id"); err != nil {
			return err
		}

		_, err = collect(ctx, tx,
			"MATCH (n:"+label+" {id: $id}) "+
				"OPTIONAL MATCH (n)-[:"+descendantRels+"*]->(d) "+
				"DETACH DELETE n, d",
			params)
		return err
	})
	if err != nil {
		return 0, err
	}
	return projectID, nil
}

var _ Store = (*Neo4jStore)(nil)

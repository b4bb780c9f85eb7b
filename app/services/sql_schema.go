package services

// Each child table carries a NOT NULL foreign key to its parent with
// ON DELETE CASCADE, so deleting any row removes its whole subtree and a
// child can never outlive its parent. Statements are kept separate because
// MySQL executes one statement per Exec.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS project (
    project_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name VARCHAR(255) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS repository (
    repository_id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    FOREIGN KEY (project_id) REFERENCES project(project_id) ON DELETE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_repository_project ON repository(project_id)`,
	`CREATE TABLE IF NOT EXISTS task (
    task_id INTEGER PRIMARY KEY AUTOINCREMENT,
    repository_id INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    completed BOOLEAN NOT NULL,
    priority VARCHAR(255) NOT NULL DEFAULT '',
    assignee VARCHAR(255) NOT NULL DEFAULT '',
    due_date VARCHAR(10),
    FOREIGN KEY (repository_id) REFERENCES repository(repository_id) ON DELETE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_task_repository ON task(repository_id)`,
	`CREATE TABLE IF NOT EXISTS subtask (
    subtask_id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    completed BOOLEAN NOT NULL,
    FOREIGN KEY (task_id) REFERENCES task(task_id) ON DELETE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_subtask_task ON subtask(task_id)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS project (
    project_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(255) NOT NULL
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS repository (
    repository_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    project_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    INDEX idx_repository_project (project_id),
    CONSTRAINT fk_repository_project FOREIGN KEY (project_id)
        REFERENCES project(project_id) ON DELETE CASCADE
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS task (
    task_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    repository_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    completed BOOLEAN NOT NULL,
    priority VARCHAR(255) NOT NULL DEFAULT '',
    assignee VARCHAR(255) NOT NULL DEFAULT '',
    due_date VARCHAR(10) NULL,
    INDEX idx_task_repository (repository_id),
    CONSTRAINT fk_task_repository FOREIGN KEY (repository_id)
        REFERENCES repository(repository_id) ON DELETE CASCADE
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS subtask (
    subtask_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    task_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    completed BOOLEAN NOT NULL,
    INDEX idx_subtask_task (task_id),
    CONSTRAINT fk_subtask_task FOREIGN KEY (task_id)
        REFERENCES task(task_id) ON DELETE CASCADE
) ENGINE=InnoDB`,
}

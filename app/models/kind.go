package models

import (
	"encoding/json"
	"strings"
)

// Kind is one of the four element types of a project tree.
type Kind int

const (
	KindProject Kind = iota + 1
	KindRepository
	KindTask
	KindSubtask
)

// Kinds lists every valid kind, root first.
var Kinds = []Kind{KindProject, KindRepository, KindTask, KindSubtask}

// ParseKind resolves a kind name. Matching ignores case, so "task",
// "TASK" and "Task" all resolve to KindTask.
func ParseKind(s string) (Kind, error) {
	switch normalizeKind(s) {
	case "Project":
		return KindProject, nil
	case "Repository":
		return KindRepository, nil
	case "Task":
		return KindTask, nil
	case "Subtask":
		return KindSubtask, nil
	default:
		return 0, &InvalidKindError{Value: s}
	}
}

// normalizeKind capitalizes s: first letter upper, the rest lower.
func normalizeKind(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func (k Kind) String() string {
	switch k {
	case KindProject:
		return "Project"
	case KindRepository:
		return "Repository"
	case KindTask:
		return "Task"
	case KindSubtask:
		return "Subtask"
	default:
		return "Unknown"
	}
}

// Valid reports whether k is one of the four kinds.
func (k Kind) Valid() bool {
	return k >= KindProject && k <= KindSubtask
}

// Table is the SQL table holding rows of this kind.
func (k Kind) Table() string {
	switch k {
	case KindProject:
		return "project"
	case KindRepository:
		return "repository"
	case KindTask:
		return "task"
	case KindSubtask:
		return "subtask"
	default:
		return ""
	}
}

// PrimaryKey is the generated id column of Table.
func (k Kind) PrimaryKey() string {
	if !k.Valid() {
		return ""
	}
	return k.Table() + "_id"
}

// Label is the graph node label for this kind.
func (k Kind) Label() string {
	if !k.Valid() {
		return ""
	}
	return k.String()
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

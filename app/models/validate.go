package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds every stored string column.
const MaxTextLength = 255

// Validate checks a submitted tree before it is stored. The project name
// may be omitted only when requireName is false (overwrite keeps the old
// name). Absent child arrays are valid and mean no children.
func (in *ProjectInput) Validate(requireName bool) error {
	if in.Name == nil {
		if requireName {
			return &ValidationError{Field: "name", Reason: "is required"}
		}
	} else if err := checkName("name", *in.Name); err != nil {
		return err
	}

	for i, repo := range in.Repositories {
		path := fmt.Sprintf("repositories[%d]", i)
		if err := checkName(path+".name", repo.Name); err != nil {
			return err
		}
		for j, task := range repo.Tasks {
			if err := task.validate(fmt.Sprintf("%s.tasks[%d]", path, j)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *TaskInput) validate(path string) error {
	if err := checkName(path+".name", t.Name); err != nil {
		return err
	}
	if t.Completed == nil {
		return &ValidationError{Field: path + ".completed", Reason: "is required"}
	}
	if err := checkLength(path+".priority", t.Priority); err != nil {
		return err
	}
	if err := checkLength(path+".assignee", t.Assignee); err != nil {
		return err
	}
	for k, sub := range t.Subtasks {
		sp := fmt.Sprintf("%s.subtasks[%d]", path, k)
		if err := checkName(sp+".name", sub.Name); err != nil {
			return err
		}
		if sub.Completed == nil {
			return &ValidationError{Field: sp + ".completed", Reason: "is required"}
		}
	}
	return nil
}

func checkName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return checkLength(field, name)
}

func checkLength(field, value string) error {
	if utf8.RuneCountInString(value) > MaxTextLength {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", MaxTextLength)}
	}
	return nil
}

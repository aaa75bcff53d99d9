package google

import (
	"fmt"
	"strings"

	"worklog/internal/core"
)

// parseTasks converts a values matrix (as returned by the Sheets API) into
// the tasks assigned to userID. It expects a header row with Task ID, Title,
// Description, Project, Status and Assignees; Assignees holds a
// comma-separated list of user IDs, empty meaning everyone.
func parseTasks(values [][]interface{}, userID string) ([]core.Task, error) {
	if len(values) == 0 {
		return nil, nil
	}

	headers := toStrings(values[0])
	colID := indexOf(headers, "Task ID")
	colTitle := indexOf(headers, "Title")
	colDescription := indexOf(headers, "Description")
	colProject := indexOf(headers, "Project")
	colStatus := indexOf(headers, "Status")
	colAssignees := indexOf(headers, "Assignees")

	if colID == -1 || colTitle == -1 || colProject == -1 {
		return nil, fmt.Errorf("unexpected task sheet header: got %v", headers)
	}

	var tasks []core.Task
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])

		id := strings.TrimSpace(safeGet(row, colID))
		if id == "" {
			continue
		}
		if !assignedTo(safeGet(row, colAssignees), userID) {
			continue
		}

		tasks = append(tasks, core.Task{
			ID:          id,
			Title:       strings.TrimSpace(safeGet(row, colTitle)),
			Description: strings.TrimSpace(safeGet(row, colDescription)),
			ProjectID:   strings.TrimSpace(safeGet(row, colProject)),
			Status:      strings.TrimSpace(safeGet(row, colStatus)),
		})
	}
	return tasks, nil
}

// assignedTo reports whether the comma-separated assignee list includes the
// user. An empty list means the task is open to everyone.
func assignedTo(assignees, userID string) bool {
	assignees = strings.TrimSpace(assignees)
	if assignees == "" {
		return true
	}
	for _, a := range strings.Split(assignees, ",") {
		if strings.TrimSpace(a) == userID {
			return true
		}
	}
	return false
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

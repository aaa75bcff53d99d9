package google

import "testing"

func sheetValues() [][]interface{} {
	return [][]interface{}{
		{"Task ID", "Title", "Description", "Project", "Status", "Assignees"},
		{"t1", "API work", "Backend endpoints", "p1", "active", "u1, u2"},
		{"t2", "Frontend", "", "p2", "active", "u2"},
		{"t3", "Support rota", "Shared duty", "p3", "active", ""},
		{"", "orphan row without id", "", "p1", "active", "u1"},
	}
}

func TestParseTasksFiltersByAssignee(t *testing.T) {
	tasks, err := parseTasks(sheetValues(), "u1")
	if err != nil {
		t.Fatalf("parseTasks: %v", err)
	}

	// t1 is assigned, t3 is open to everyone, t2 belongs to u2 only.
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2: %+v", len(tasks), tasks)
	}
	if tasks[0].ID != "t1" || tasks[0].ProjectID != "p1" || tasks[0].Title != "API work" {
		t.Errorf("first task = %+v", tasks[0])
	}
	if tasks[1].ID != "t3" {
		t.Errorf("second task = %+v", tasks[1])
	}
}

func TestParseTasksEmptySheet(t *testing.T) {
	tasks, err := parseTasks(nil, "u1")
	if err != nil {
		t.Fatalf("parseTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("empty sheet produced %+v", tasks)
	}
}

func TestParseTasksBadHeader(t *testing.T) {
	values := [][]interface{}{
		{"Something", "Else"},
		{"t1", "x"},
	}
	if _, err := parseTasks(values, "u1"); err == nil {
		t.Error("bad header accepted")
	}
}

func TestParseTasksHeaderCaseInsensitive(t *testing.T) {
	values := [][]interface{}{
		{"task id", "title", "description", "project", "status", "assignees"},
		{"t1", "API work", "", "p1", "active", "u1"},
	}
	tasks, err := parseTasks(values, "u1")
	if err != nil {
		t.Fatalf("parseTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
}

func TestAssignedTo(t *testing.T) {
	tests := []struct {
		assignees string
		user      string
		want      bool
	}{
		{"", "u1", true},
		{"u1", "u1", true},
		{"u1, u2", "u2", true},
		{"u1,u2", "u3", false},
		{"u10", "u1", false},
	}
	for _, tt := range tests {
		if got := assignedTo(tt.assignees, tt.user); got != tt.want {
			t.Errorf("assignedTo(%q, %q) = %v, want %v", tt.assignees, tt.user, got, tt.want)
		}
	}
}

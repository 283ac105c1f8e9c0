package domain

// Visible returns the subset of tasks the viewer is authorized to see.
// Admins see every task in the order received; members see exactly the tasks
// assigned to their email (case-sensitive match, no normalization). The
// result is the only task set that may be rendered or scanned for deadlines.
func Visible(tasks []Task, viewerEmail string, role Role) []Task {
	if role == RoleAdmin {
		return tasks
	}
	visible := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Assignee == viewerEmail {
			visible = append(visible, task)
		}
	}
	return visible
}

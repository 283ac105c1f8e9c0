package transport

// TaskCreateRequest is the payload for the admin create action. The deadline
// is a calendar date.
type TaskCreateRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Assignee    string `json:"assignee" validate:"required,email"`
	Deadline    string `json:"deadline" validate:"required,datetime=2006-01-02"`
}

// TaskStatusRequest is the payload for the admin bulk-status action.
type TaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
}

// TaskUpdateRequest is the member edit payload. All fields are optional;
// absent fields are left untouched.
type TaskUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Deadline    *string `json:"deadline,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
}

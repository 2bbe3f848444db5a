package complaints

import "time"

// Complaint statuses a ticket moves through.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
)

// ValidStatus reports whether s is one of the allowed complaint statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Complaint is a persisted, accepted grievance joined with its submitter and
// handling department.
type Complaint struct {
	ID             int64     `json:"id"`
	TicketNumber   string    `json:"ticket_number"`
	UserName       string    `json:"user_name"`
	UserEmail      string    `json:"user_email,omitempty"`
	UserPhone      string    `json:"user_phone,omitempty"`
	Description    string    `json:"description"`
	Address        string    `json:"address"`
	DepartmentName string    `json:"department"`
	Status         string    `json:"status"`
	ImagePath      string    `json:"image_path,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Filter narrows the admin listing. Empty fields match everything; Search
// matches ticket number, submitter name or description, case-insensitively.
type Filter struct {
	Department string
	Status     string
	Search     string
}

// Report aggregates complaint counts for the admin dashboard.
type Report struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByDepartment map[string]int `json:"by_department"`
}

package models

// UserImportRow is one parsed line of a batch user creation CSV. Column order
// is fixed: First Name, Last Name, Email, Organization, optional Password.
type UserImportRow struct {
	Line         int    `json:"line"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	Password     string `json:"-"`
}

// ImportRowStatus is the per-row outcome marker.
type ImportRowStatus string

const (
	ImportRowSuccess ImportRowStatus = "success"
	ImportRowError   ImportRowStatus = "error"
)

// UserImportRowResult reports the outcome of a single row. Rows are processed
// sequentially with no rollback; successes stand even when later rows fail.
type UserImportRowResult struct {
	Line    int             `json:"line"`
	Email   string          `json:"email"`
	Status  ImportRowStatus `json:"status"`
	UserID  string          `json:"user_id,omitempty"`
	Message string          `json:"message,omitempty"`
}

// UserImportSummary aggregates per-row outcomes for a batch import.
type UserImportSummary struct {
	Total     int                   `json:"total"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Rows      []UserImportRowResult `json:"rows"`
}

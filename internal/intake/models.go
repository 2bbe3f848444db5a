package intake

// Submission is the raw citizen-supplied payload before any gate has run.
// Image is optional and, when present, carries either a bare base64 string
// or a data-URI with a media-type prefix.
type Submission struct {
	Name        string
	Email       string
	Phone       string
	Description string
	Address     string
	Image       string
}

// ValidatedIntake is the output of a fully passed gate sequence, ready for
// persistence.
type ValidatedIntake struct {
	TicketNumber    string
	Description     string
	FinalAddress    string
	DepartmentName  string
	ImageStoredPath string
	RelevanceScore  float64
}

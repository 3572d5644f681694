package resume

import "fmt"

// EmployerNotFoundError is returned when no employer carries the requested id.
type EmployerNotFoundError struct {
	EmployerID string
}

func (e *EmployerNotFoundError) Error() string {
	return fmt.Sprintf("employer %q not found", e.EmployerID)
}

// PositionNotFoundError is returned when the employer exists but none of its
// positions match by title or start date.
type PositionNotFoundError struct {
	EmployerID string
	Title      string
	StartDate  string
}

func (e *PositionNotFoundError) Error() string {
	return fmt.Sprintf("position %q (start %q) not found under employer %q", e.Title, e.StartDate, e.EmployerID)
}

// AmbiguousPositionError is returned when more than one position matches and
// picking one would risk filing achievements under the wrong role.
type AmbiguousPositionError struct {
	EmployerID string
	Title      string
	StartDate  string
	Matches    int
	DateOnly   bool
}

func (e *AmbiguousPositionError) Error() string {
	by := "title"
	if e.DateOnly {
		by = "start date"
	}
	return fmt.Sprintf("%d positions under employer %q match %q by %s; disambiguate the target",
		e.Matches, e.EmployerID, e.Title, by)
}

// LoadError wraps failures to read or parse the resume document.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load resume %s: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

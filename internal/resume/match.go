package resume

import (
	"go.uber.org/zap"
)

// Target identifies the position new achievements should be filed under.
// StartDate is best effort and only used when no title matches.
type Target struct {
	EmployerID string
	Title      string
	StartDate  string
}

// Match is a resolved position.
type Match struct {
	Employer *Employer
	Position *Position
	// DateOnly is set when the title did not match and the start date was used instead.
	DateOnly bool
}

// FindPosition resolves t against the document. The employer is found by id,
// then the position by exact title, then by start date alone. A date-only
// match is logged as a warning. More than one candidate at the deciding step
// is an AmbiguousPositionError.
func (r *Resume) FindPosition(t Target, logger *zap.Logger) (*Match, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var employer *Employer
	for _, e := range r.Experience {
		if e.ID == t.EmployerID {
			employer = e
			break
		}
	}
	if employer == nil {
		return nil, &EmployerNotFoundError{EmployerID: t.EmployerID}
	}

	byTitle := make([]*Position, 0, 1)
	for _, p := range employer.Positions {
		if p.Title == t.Title {
			byTitle = append(byTitle, p)
		}
	}
	switch len(byTitle) {
	case 1:
		return &Match{Employer: employer, Position: byTitle[0]}, nil
	case 0:
	default:
		return nil, &AmbiguousPositionError{
			EmployerID: t.EmployerID,
			Title:      t.Title,
			StartDate:  t.StartDate,
			Matches:    len(byTitle),
		}
	}

	if t.StartDate != "" {
		byDate := make([]*Position, 0, 1)
		for _, p := range employer.Positions {
			if p.StartDate == t.StartDate {
				byDate = append(byDate, p)
			}
		}
		switch len(byDate) {
		case 1:
			logger.Warn("matched position by start date only",
				zap.String("employer_id", t.EmployerID),
				zap.String("requested_title", t.Title),
				zap.String("matched_title", byDate[0].Title),
				zap.String("start_date", t.StartDate),
			)
			return &Match{Employer: employer, Position: byDate[0], DateOnly: true}, nil
		case 0:
		default:
			return nil, &AmbiguousPositionError{
				EmployerID: t.EmployerID,
				Title:      t.Title,
				StartDate:  t.StartDate,
				Matches:    len(byDate),
				DateOnly:   true,
			}
		}
	}

	return nil, &PositionNotFoundError{EmployerID: t.EmployerID, Title: t.Title, StartDate: t.StartDate}
}

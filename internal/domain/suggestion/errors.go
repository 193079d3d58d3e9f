package suggestion

import "fmt"

// NotFoundError reports that an entity does not exist or is not visible to
// the caller's organization. Visibility failures deliberately look identical
// to absence.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InvalidStateError reports an operation attempted on a suggestion that is
// not in the required lifecycle state.
type InvalidStateError struct {
	SuggestionID string
	Status       string
	Operation    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s suggestion %s in status %s", e.Operation, e.SuggestionID, e.Status)
}

// ValidationError reports caller-supplied input the operation cannot accept.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

package shared

import "github.com/google/uuid"

// Reference points a ledger row back at the document or event that produced it
type Reference struct {
	Kind string
	ID   uuid.UUID
}

// NewReference creates a reference
func NewReference(kind string, id uuid.UUID) Reference {
	return Reference{Kind: kind, ID: id}
}

// IsZero reports whether the reference is empty
func (r Reference) IsZero() bool {
	return r.Kind == "" && r.ID == uuid.Nil
}

func (r Reference) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Kind + ":" + r.ID.String()
}

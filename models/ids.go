package models

import "github.com/google/uuid"

// newID returns the string primary key used by every model.
func newID() string {
	return uuid.NewString()
}

package models

// Actor is the resolved caller of an operation. A zero Actor is a guest.
type Actor struct {
	UserID string
	Email  string
	Role   string
	Staff  bool
}

// IsGuest reports whether the caller is unauthenticated
func (a Actor) IsGuest() bool {
	return a.UserID == ""
}

// UserRef returns the user id as a nullable column value
func (a Actor) UserRef() *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}

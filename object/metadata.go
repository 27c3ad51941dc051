package object

import "time"

// Metadata tracks who created and last changed an object. Create fields
// are immutable after the first persist.
type Metadata struct {
	CreateUser string
	CreateDate time.Time
	ChangeUser string
	ChangeDate time.Time
}

// NewMetadata stamps creation and change metadata for user at now.
func NewMetadata(user string) Metadata {
	now := time.Now().UTC()
	return Metadata{
		CreateUser: user,
		CreateDate: now,
		ChangeUser: user,
		ChangeDate: now,
	}
}

// Changed stamps change metadata for user, leaving creation untouched.
func (m *Metadata) Changed(user string) {
	m.ChangeUser = user
	m.ChangeDate = time.Now().UTC()
}

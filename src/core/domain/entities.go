package domain

// League is a competition stored in one of the sport databases.
type League struct {
	ID      int64
	Name    string
	Country string

	// ExternalID links the league to the statistics provider. Nil until the
	// league has been matched.
	ExternalID *int64
}

// HasExternalID reports whether the league is linked to the statistics provider.
func (l League) HasExternalID() bool {
	return l.ExternalID != nil
}

// DatabaseHealth is the reachability of one logical database.
type DatabaseHealth struct {
	Name    string
	Healthy bool
	Message string
}

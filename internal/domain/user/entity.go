package user

// User represents a user record in the system.
type User struct {
	ID    string `json:"id"`    // ID is a server-generated UUID v4, immutable after creation
	Name  any    `json:"name"`  // Name is stored as the JSON value given, usually a string
	Email any    `json:"email"` // Email is stored as given, without type or format checks
	Age   int    `json:"age"`   // Age is the user's age in whole years
}

// Document is the persisted form of the whole user collection.
// It is always written and read as a single unit.
type Document struct {
	Users []User `json:"users"`
}

// NewDocument wraps users in a Document, never leaving Users nil so the
// encoded form is {"users": []} rather than {"users": null}.
func NewDocument(users []User) *Document {
	if users == nil {
		users = []User{}
	}
	return &Document{Users: users}
}

package user

// Payload is a loosely-typed request body as decoded from JSON.
// Numbers are expected as json.Number so integers and floats stay distinct.
type Payload map[string]any

// Field names accepted in a Payload.
const (
	FieldName  = "name"
	FieldEmail = "email"
	FieldAge   = "age"
)

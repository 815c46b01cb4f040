package user

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	apperrors "user-record-service/pkg/errors"
)

var errAgeNotInteger = apperrors.NewValidationError(FieldAge, "Age must be an integer")

// requiredFields are checked in order; the first missing one is reported.
var requiredFields = []string{FieldName, FieldEmail, FieldAge}

// ValidateForCreate checks that a create payload carries name, email and an
// integer age. Name and email are accepted as-is, whatever their JSON type.
func ValidateForCreate(in Payload) error {
	if len(in) == 0 {
		return apperrors.ErrBodyRequired
	}

	for _, field := range requiredFields {
		if _, ok := in[field]; !ok {
			return apperrors.NewValidationError(field, fmt.Sprintf("Missing '%s' field", field))
		}
	}

	if _, ok := intValue(in[FieldAge]); !ok {
		return errAgeNotInteger
	}

	return nil
}

// ValidateForUpdate checks a partial update payload. Only age is
// constrained; a body with no known fields is still valid.
func ValidateForUpdate(in Payload) error {
	if len(in) == 0 {
		return apperrors.ErrBodyRequired
	}

	if v, ok := in[FieldAge]; ok {
		if _, ok := intValue(v); !ok {
			return errAgeNotInteger
		}
	}

	return nil
}

// intValue accepts JSON integers only: 30 is an integer, 30.0, "30" and
// true are not.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 0)
		if err != nil {
			return 0, false
		}
		return int(i), true
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Package storage holds the codec shared by every DocumentStore backend.
// Backends live in the sub-packages and only move bytes; the shape of the
// persisted document is decided here.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/pretty"

	domain "user-record-service/internal/domain/user"
	apperrors "user-record-service/pkg/errors"
)

// ContentType is the media type of an encoded document.
const ContentType = "application/json"

var (
	errEmptyDocument = errors.New("document is empty")
	errMissingUsers  = errors.New(`document has no "users" array`)
	errTrailingData  = errors.New("document has data after the top-level value")
)

// prettyOptions mirrors the two-space indentation the document has always
// been written with.
var prettyOptions = &pretty.Options{
	Width:    80,
	Prefix:   "",
	Indent:   "  ",
	SortKeys: false,
}

// EncodeDocument serializes the full document as indented JSON.
func EncodeDocument(doc *domain.Document) ([]byte, error) {
	if doc == nil {
		doc = domain.NewDocument(nil)
	}

	data, err := json.Marshal(domain.NewDocument(doc.Users))
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	return pretty.PrettyOptions(data, prettyOptions), nil
}

// DecodeDocument parses data into a Document. Anything that is not an
// object holding a "users" array of well-typed records is reported as a
// *errors.CorruptDocumentError naming source. Name and email keep whatever
// JSON value was stored; numbers among them decode as json.Number.
func DecodeDocument(data []byte, source string) (*domain.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperrors.NewCorruptDocumentError(source, errEmptyDocument)
	}

	var raw struct {
		Users *[]domain.User `json:"users"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.NewCorruptDocumentError(source, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperrors.NewCorruptDocumentError(source, errTrailingData)
	}
	if raw.Users == nil {
		return nil, apperrors.NewCorruptDocumentError(source, errMissingUsers)
	}

	return domain.NewDocument(*raw.Users), nil
}

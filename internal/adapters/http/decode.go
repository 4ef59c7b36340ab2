package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"vitebridge/internal/domain/item"
)

// maxBodyBytes caps request bodies on the API.
const maxBodyBytes = 1 << 20

// itemPayload mirrors item.Input with pointer fields so a missing key can be
// told apart from an empty string.
type itemPayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// decodeError carries the HTTP status a decoding failure maps to.
type decodeError struct {
	status int
	code   string
	msg    string
}

func (e *decodeError) Error() string { return e.msg }

// decodeJSON decodes the request body into v. Unknown keys are ignored.
// PRE: v is a non-nil pointer
// POST: returns nil or a *decodeError (400 for unparseable bodies, 422 for
// type mismatches, 413 for oversized bodies)
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
			sizeErr   *http.MaxBytesError
		)
		switch {
		case errors.As(err, &sizeErr):
			return &decodeError{http.StatusRequestEntityTooLarge, codePayloadTooLarge, fmt.Sprintf("body exceeds %d bytes", sizeErr.Limit)}
		case errors.As(err, &typeErr):
			return &decodeError{http.StatusUnprocessableEntity, codeValidationFailed, fmt.Sprintf("field %q must be a %s", typeErr.Field, typeErr.Type)}
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return &decodeError{http.StatusBadRequest, codeInvalidJSON, "request body is not valid JSON"}
		case errors.Is(err, io.EOF):
			return &decodeError{http.StatusBadRequest, codeInvalidJSON, "request body is empty"}
		default:
			return &decodeError{http.StatusBadRequest, codeInvalidJSON, err.Error()}
		}
	}
	if dec.More() {
		return &decodeError{http.StatusBadRequest, codeInvalidJSON, "request body must contain a single JSON value"}
	}
	return nil
}

// decodeItemInput reads and type-checks an item payload.
func decodeItemInput(w http.ResponseWriter, r *http.Request) (item.Input, error) {
	var p itemPayload
	if err := decodeJSON(w, r, &p); err != nil {
		return item.Input{}, err
	}
	switch {
	case p.Title == nil:
		return item.Input{}, &decodeError{http.StatusUnprocessableEntity, codeValidationFailed, `field "title" is required`}
	case p.Description == nil:
		return item.Input{}, &decodeError{http.StatusUnprocessableEntity, codeValidationFailed, `field "description" is required`}
	}
	in := item.Input{Title: *p.Title, Description: *p.Description}
	if err := in.Validate(); err != nil {
		return item.Input{}, &decodeError{http.StatusUnprocessableEntity, codeValidationFailed, err.Error()}
	}
	return in, nil
}

// writeDecodeError writes the response for an error from decodeJSON or decodeItemInput.
func writeDecodeError(w http.ResponseWriter, err error) {
	var de *decodeError
	if errors.As(err, &de) {
		writeError(w, de.status, de.code, de.msg)
		return
	}
	writeError(w, http.StatusBadRequest, codeInvalidJSON, err.Error())
}

package resume

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	apperrors "cvcraft/internal/errors"
)

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// FieldError is a single schema violation at a JSON path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateSchema checks raw JSON against the document contract. Missing fields
// are allowed everywhere; wrong types are not.
func ValidateSchema(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return apperrors.NewInternalError(apperrors.ErrCodeInvalidConfig, "failed to compile resume schema", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return apperrors.NewDocumentError(apperrors.ErrCodeInvalidFormat, "resume is not valid JSON", err)
	}
	if result.Valid() {
		return nil
	}

	fields := make([]FieldError, 0, len(result.Errors()))
	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		fields = append(fields, FieldError{Field: field, Message: desc.Description()})
		messages = append(messages, fmt.Sprintf("%s: %s", field, desc.Description()))
	}

	return apperrors.NewDocumentError(
		apperrors.ErrCodeSchemaViolation,
		"resume does not match the document schema: "+strings.Join(messages, "; "),
		nil,
	).WithContext("fields", fields)
}

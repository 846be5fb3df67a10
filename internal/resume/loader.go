package resume

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	apperrors "cvcraft/internal/errors"
)

// Format is the serialization of a resume file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DecodeOptions controls document decoding.
type DecodeOptions struct {
	ValidateSchema bool
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", apperrors.NewValidationError(apperrors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported resume file extension %q (use .json, .yaml or .yml)", filepath.Ext(path)), nil)
	}
}

// Decode parses a resume. YAML input is converted to JSON first so both
// formats share the same field names and schema check.
func Decode(data []byte, format Format, opts DecodeOptions) (*Document, error) {
	raw := data
	if format == FormatYAML {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, apperrors.NewDocumentError(apperrors.ErrCodeInvalidFormat, "failed to parse YAML resume", err)
		}
		raw = converted
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, apperrors.NewDocumentError(apperrors.ErrCodeInvalidDocument, "resume document is empty", &InvalidDocumentError{Reason: "document is null"})
	}

	if opts.ValidateSchema {
		if err := ValidateSchema(raw); err != nil {
			return nil, err
		}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.NewDocumentError(apperrors.ErrCodeInvalidFormat, "failed to decode resume", err)
	}
	return &doc, nil
}

// Load reads and decodes a resume file, choosing the format by extension.
func Load(path string, opts DecodeOptions) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewIOError(apperrors.ErrCodeFileNotFound, "resume file not found: "+path, err)
		}
		return nil, apperrors.NewIOError(apperrors.ErrCodeFileNotReadable, "failed to read resume file: "+path, err)
	}

	doc, err := Decode(data, format, opts)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("file", path)
		}
		return nil, err
	}
	return doc, nil
}

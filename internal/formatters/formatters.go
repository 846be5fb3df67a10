package formatters

import (
	"encoding/json"
	"fmt"
	"slices"

	"cvcraft/internal/ats"
	"cvcraft/internal/resume"
	"cvcraft/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	for _, format := range []string{"text", "markdown"} {
		s := styles[format]
		registry.RegisterFormatter(format, typeBreakdown, newStyled(typeBreakdown, s, renderBreakdown))
		registry.RegisterFormatter(format, typeFileScores, newStyled(typeFileScores, s, renderFileScores))
		registry.RegisterFormatter(format, typeReadiness, newStyled(typeReadiness, s, renderReadiness))
		registry.RegisterFormatter(format, typeExportCheck, newStyled(typeExportCheck, s, renderExportCheck))
		registry.RegisterFormatter(format, typeTips, newStyled(typeTips, s, renderTips))
		registry.RegisterFormatter(format, typeDocument, newStyled(typeDocument, s, renderDocument))
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

const (
	typeBreakdown   = "Breakdown"
	typeFileScores  = "FileScores"
	typeReadiness   = "Readiness"
	typeExportCheck = "ExportCheck"
	typeTips        = "Tips"
	typeDocument    = "Document"
)

func getDataType(data any) string {
	switch data.(type) {
	case ats.Breakdown:
		return typeBreakdown
	case []types.FileScore:
		return typeFileScores
	case types.ReadinessResponse:
		return typeReadiness
	case types.ExportCheckResponse:
		return typeExportCheck
	case types.TipsResponse:
		return typeTips
	case *resume.Document:
		return typeDocument
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// GlobalRegistry is the shared formatter registry
var GlobalRegistry = NewFormatterRegistry()

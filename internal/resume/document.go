// Package resume defines the resume document model shared by the scoring
// engine, the CLI and the HTTP API.
package resume

import "fmt"

// Basics holds contact and identity information.
type Basics struct {
	FullName string `json:"fullName"`
	Headline string `json:"headline"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// Experience is a single role. An empty EndDate means the role is current.
type Experience struct {
	ID        string   `json:"id"`
	Company   string   `json:"company"`
	Role      string   `json:"role"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Bullets   []string `json:"bullets"`
}

type Education struct {
	ID          string   `json:"id"`
	Institution string   `json:"institution"`
	Degree      string   `json:"degree"`
	StartYear   string   `json:"startYear"`
	EndYear     string   `json:"endYear"`
	GPA         string   `json:"gpa,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Bullets     []string `json:"bullets"`
}

// Metadata is bookkeeping only and never scored.
type Metadata struct {
	LastUpdated string `json:"lastUpdated,omitempty"`
	TemplateID  string `json:"templateId,omitempty"`
}

// Document is the resume as edited by the user. Every field is optional;
// absent strings decode to "" and absent collections to nil.
type Document struct {
	Basics     Basics       `json:"basics"`
	Summary    string       `json:"summary"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Skills     []string     `json:"skills"`
	Projects   []Project    `json:"projects"`
	Metadata   Metadata     `json:"metadata"`
}

// InvalidDocumentError is the only failure the scoring engine reports. It is
// returned when no document was supplied at all.
type InvalidDocumentError struct {
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid resume document: %s", e.Reason)
}

// Normalize returns a copy of doc in which every collection is non-nil, so
// analyzers and encoders never have to distinguish absent from empty.
func Normalize(doc *Document) (Document, error) {
	if doc == nil {
		return Document{}, &InvalidDocumentError{Reason: "document is nil"}
	}

	out := *doc
	out.Skills = nonNil(doc.Skills)

	out.Experience = make([]Experience, len(doc.Experience))
	for i, exp := range doc.Experience {
		exp.Bullets = nonNil(exp.Bullets)
		out.Experience[i] = exp
	}

	out.Education = make([]Education, len(doc.Education))
	for i, edu := range doc.Education {
		edu.Highlights = nonNil(edu.Highlights)
		out.Education[i] = edu
	}

	out.Projects = make([]Project, len(doc.Projects))
	for i, proj := range doc.Projects {
		proj.Bullets = nonNil(proj.Bullets)
		out.Projects[i] = proj
	}

	return out, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// Scored returns the normalized document without metadata. Two documents with
// equal Scored values always produce identical scoring results.
func Scored(doc *Document) (Document, error) {
	out, err := Normalize(doc)
	if err != nil {
		return Document{}, err
	}
	out.Metadata = Metadata{}
	return out, nil
}

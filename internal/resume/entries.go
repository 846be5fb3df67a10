package resume

import (
	"time"

	"github.com/google/uuid"
)

const DefaultTemplateID = "professional-classic"

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// NewExperience returns an empty role with a single blank bullet ready for editing.
func NewExperience() Experience {
	return Experience{
		ID:      newID("exp"),
		Bullets: []string{""},
	}
}

func NewEducation() Education {
	return Education{
		ID:         newID("edu"),
		Highlights: []string{},
	}
}

func NewProject() Project {
	return Project{
		ID:      newID("proj"),
		Bullets: []string{""},
	}
}

// Empty returns the all-empty, structurally valid document.
func Empty() *Document {
	return &Document{
		Experience: []Experience{},
		Education:  []Education{},
		Skills:     []string{},
		Projects:   []Project{},
		Metadata: Metadata{
			LastUpdated: time.Now().UTC().Format(time.RFC3339),
			TemplateID:  DefaultTemplateID,
		},
	}
}

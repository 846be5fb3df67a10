package ats

import (
	"strings"

	"cvcraft/internal/resume"
)

// CollectText joins the narrative parts of the document into one lowercased
// string used for substring matching.
func CollectText(doc resume.Document) string {
	experience := make([]string, len(doc.Experience))
	for i, exp := range doc.Experience {
		experience[i] = exp.Role + " " + exp.Company + " " + strings.Join(exp.Bullets, " ")
	}

	projects := make([]string, len(doc.Projects))
	for i, proj := range doc.Projects {
		projects[i] = proj.Name + " " + proj.Description + " " + strings.Join(proj.Bullets, " ")
	}

	return strings.ToLower(strings.Join([]string{
		strings.ToLower(doc.Summary),
		strings.Join(experience, " "),
		strings.Join(projects, " "),
		strings.Join(doc.Skills, " "),
	}, " "))
}

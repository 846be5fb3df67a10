package resume

import "time"

// Sample returns the default resume new users start from.
func Sample() *Document {
	return &Document{
		Basics: Basics{
			FullName: "Sarah Johnson",
			Headline: "Senior Software Engineer",
			Email:    "sarah.johnson@email.com",
			Phone:    "+1 (555) 123-4567",
			Location: "San Francisco, CA",
			LinkedIn: "linkedin.com/in/sarahjohnson",
			GitHub:   "github.com/sarahjohnson",
		},
		Summary: "Results-driven Senior Software Engineer with 8+ years of experience building scalable web applications and leading cross-functional teams. " +
			"Passionate about clean code, system architecture, and mentoring junior developers. " +
			"Proven track record of delivering high-impact projects that improve user engagement by 40%+.",
		Experience: []Experience{
			{
				ID:        "exp-1",
				Company:   "TechCorp Inc.",
				Role:      "Senior Software Engineer",
				StartDate: "2021-01",
				EndDate:   "",
				Bullets: []string{
					"Led development of microservices architecture serving 10M+ users",
					"Mentored team of 5 junior engineers, improving code quality by 35%",
					"Reduced API response time by 60% through optimization",
				},
			},
			{
				ID:        "exp-2",
				Company:   "StartupXYZ",
				Role:      "Software Engineer",
				StartDate: "2018-06",
				EndDate:   "2021-01",
				Bullets: []string{
					"Built React-based dashboard used by 50K+ customers",
					"Implemented CI/CD pipeline reducing deployment time by 80%",
					"Collaborated with design team to improve UX, increasing user retention by 25%",
				},
			},
		},
		Education: []Education{
			{
				ID:          "edu-1",
				Institution: "Stanford University",
				Degree:      "B.S. Computer Science",
				StartYear:   "2014",
				EndYear:     "2018",
				GPA:         "3.8/4.0",
				Highlights:  []string{"Magna Cum Laude", "Dean's List"},
			},
		},
		Skills: []string{
			"JavaScript", "TypeScript", "React", "Node.js", "Python",
			"AWS", "Docker", "PostgreSQL", "GraphQL", "Git",
		},
		Projects: []Project{
			{
				ID:          "proj-1",
				Name:        "E-Commerce Platform",
				Description: "Full-stack e-commerce solution with real-time inventory management",
				Bullets: []string{
					"Built with React, Node.js, and PostgreSQL",
					"Handles 10K+ concurrent users with 99.9% uptime",
					"Integrated Stripe payment processing",
				},
			},
			{
				ID:          "proj-2",
				Name:        "AI Code Review Bot",
				Description: "GitHub bot that provides automated code review suggestions using GPT-4",
				Bullets: []string{
					"Reduced code review time by 40%",
					"Deployed on AWS Lambda for serverless scaling",
				},
			},
		},
		Metadata: Metadata{
			LastUpdated: time.Now().UTC().Format(time.RFC3339),
			TemplateID:  DefaultTemplateID,
		},
	}
}

package ai

import (
	"fmt"
	"strings"

	"github.com/cosmin-sisman/monday-project-generator/domain"
)

const generateSystemPrompt = `You are an expert project manager. Your task is to analyze project descriptions and create structured project plans suitable for task boards.

Given a project description, you must return a JSON object with the following structure:

{
  "title": "Project Name",
  "groups": [
    {
      "title": "Phase/Category Name",
      "color": "#579BFC",
      "tasks": [
        {
          "title": "Task Name",
          "description": "Detailed specifications and requirements for this task",
          "priority": "high" | "medium" | "low",
          "estimated_hours": 8
        }
      ]
    }
  ]
}

Guidelines:
1. Break down the project into logical groups (phases, categories, or work streams)
2. Each group should have 3-8 tasks
3. Task descriptions should be detailed and actionable
4. Use colors for groups: Planning/Discovery (#579BFC blue), Design (#FDAB3D orange), Development (#00C875 green), Testing (#E2445C red), Deployment (#784BD1 purple)
5. Estimate hours realistically based on task complexity
6. Set priorities based on dependencies and importance
7. Create clear, specific task titles
8. Total project should have 3-8 groups

Focus on creating a comprehensive, actionable project structure that a team can immediately start working from.`

// chatSystemPrompt builds the per-project system prompt for conversational
// edits. It echoes every existing identifier so the assistant can return
// them verbatim: an identifier it fails to echo is an implicit delete, and
// an identifier set to null means create-new.
func chatSystemPrompt(p domain.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a project management assistant that executes changes.\n\n")
	fmt.Fprintf(&b, "Current Project: %s\n\nEXISTING GROUPS (copy these exact ids into your response):\n", p.Title)
	for gi, g := range p.Groups {
		fmt.Fprintf(&b, "%d. Group %q id=%q color=%q position=%d\n", gi+1, g.Title, g.ID, g.Color, g.Position)
		for ti, t := range g.Tasks {
			hours := "null"
			if t.EstimatedHours != nil {
				hours = fmt.Sprintf("%g", *t.EstimatedHours)
			}
			fmt.Fprintf(&b, "   %d.%d Task %q id=%q priority=%s estimated_hours=%s position=%d status=%s\n",
				gi+1, ti+1, t.Title, t.ID, t.Priority, hours, t.Position, t.Status)
		}
	}
	b.WriteString(`
When the user asks you to modify the project, return a JSON object with this exact structure:

{
  "message": "a friendly summary of what you did",
  "actions_performed": ["Added group: Documentation"],
  "updated_project": {
    "title": "project title",
    "groups": [
      {
        "id": "existing uuid or null for new groups",
        "title": "...",
        "color": "#579BFC",
        "position": 0,
        "tasks": [
          {"id": "existing uuid or null for new tasks", "title": "...", "description": "...", "priority": "low|medium|high", "estimated_hours": 0, "position": 0, "status": "pending"}
        ]
      }
    ]
  }
}

Rules:
1. Default mode is ADD ONLY. Unless the user explicitly asks to delete or remove something, you only add.
2. Always copy ALL existing groups and tasks into updated_project with their exact ids. Anything you omit is deleted.
3. Identifiers are UUIDs, never color codes. For new groups and tasks set "id" to null.
4. Omit "updated_project" entirely when the user is only asking a question.
When in doubt, keep it. Only delete when explicitly asked.`)
	return b.String()
}

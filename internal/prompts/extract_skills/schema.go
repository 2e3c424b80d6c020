package extract_skills

// ExtractionSchema is the JSON schema for skill extraction output.
var ExtractionSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "skill_extraction",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"skills": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"skill": map[string]any{
								"type":        "string",
								"description": "Short noun phrase naming the skill",
							},
							"level": map[string]any{
								"type":        "integer",
								"minimum":     1,
								"maximum":     12,
								"description": "Required proficiency on a 1-12 scale",
							},
							"knowledge_required": map[string]any{
								"type":        "array",
								"items":       map[string]any{"type": "string"},
								"description": "Knowledge needed to perform the skill",
							},
							"tasks": map[string]any{
								"type":        "array",
								"items":       map[string]any{"type": "string"},
								"description": "Tasks the skill is applied to",
							},
							"confidence": map[string]any{
								"type":        "number",
								"minimum":     0,
								"maximum":     1,
								"description": "How clearly the text states the skill",
							},
						},
						"required":             []string{"skill", "level", "knowledge_required", "tasks", "confidence"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"skills"},
			"additionalProperties": false,
		},
	},
}

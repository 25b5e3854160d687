package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// pipelineSchema is the structural contract of the pipeline document,
// checked before the document is bound to typed models.
var pipelineSchema = map[string]any{
	"type":     "object",
	"required": []string{"name", "jobs"},
	"properties": map[string]any{
		"name": map[string]any{"type": "string", "minLength": 3},
		"jobs": map[string]any{
			"type":          "object",
			"minProperties": 1,
			"additionalProperties": map[string]any{
				"type":     "object",
				"required": []string{"image", "steps"},
				"properties": map[string]any{
					"image": map[string]any{"type": "string", "minLength": 1},
					"repo": map[string]any{
						"type":     "object",
						"required": []string{"url"},
						"properties": map[string]any{
							"url": map[string]any{"type": "string"},
							"ref": map[string]any{"type": "string"},
						},
					},
					"install": installSchema,
					"steps": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type":     "object",
							"required": []string{"name", "kind"},
							"properties": map[string]any{
								"name": map[string]any{"type": "string"},
								"kind": map[string]any{
									"type": "string",
									"enum": []string{"checkout", "install", "run"},
								},
								"run": map[string]any{
									"type":     "object",
									"required": []string{"command"},
									"properties": map[string]any{
										"command": map[string]any{"type": "string", "minLength": 1},
									},
								},
								"install": installSchema,
							},
						},
					},
					"variables": map[string]any{"type": "object"},
				},
			},
		},
		"workflows": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type":     "object",
				"required": []string{"jobs"},
				"properties": map[string]any{
					"jobs": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items":    map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

var installSchema = map[string]any{
	"type":     "object",
	"required": []string{"package_manager"},
	"properties": map[string]any{
		"package_manager": map[string]any{
			"type": "string",
			"enum": []string{"poetry", "pip", "npm"},
		},
		"venv_path": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
}

// validateSchema checks the raw document against the pipeline schema.
func validateSchema(document map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(pipelineSchema)
	dataLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate pipeline document: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("pipeline document is invalid: %s", strings.Join(messages, "; "))
	}

	return nil
}

// Package config loads and validates the declarative pipeline document: one
// environment image per job, an ordered list of steps, and a workflows
// section mapping workflow names to job references.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/lorry-ci/lorry/pkg/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadPipeline reads, validates and binds a pipeline document. The returned
// pipeline is fully resolved and immutable from the caller's point of view.
func LoadPipeline(path string) (*models.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline document %s: %w", path, err)
	}

	return ParsePipeline(data)
}

// ParsePipeline validates the raw document structurally, binds it to models
// and applies struct-level validation.
func ParsePipeline(data []byte) (*models.Pipeline, error) {
	var document map[string]any

	err := yaml.Unmarshal(data, &document)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline document: %w", err)
	}

	err = validateSchema(document)
	if err != nil {
		return nil, err
	}

	var pipeline models.Pipeline

	err = yaml.Unmarshal(data, &pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to bind pipeline document: %w", err)
	}

	applyDefaults(&pipeline)

	err = validate.Struct(&pipeline)
	if err != nil {
		return nil, fmt.Errorf("pipeline validation failed: %w", err)
	}

	err = validateWorkflowReferences(&pipeline)
	if err != nil {
		return nil, err
	}

	return &pipeline, nil
}

func applyDefaults(pipeline *models.Pipeline) {
	now := time.Now().UTC()

	if pipeline.ID == "" {
		pipeline.ID = "pipeline-" + uuid.New().String()[:8]
	}

	pipeline.CreatedAt = now
	pipeline.UpdatedAt = now

	for name, job := range pipeline.Jobs {
		if job == nil {
			continue
		}

		if job.ID == "" {
			job.ID = name
		}

		if job.Name == "" {
			job.Name = name
		}

		job.CreatedAt = now
	}
}

// validateWorkflowReferences rejects workflows naming jobs the document does
// not declare.
func validateWorkflowReferences(pipeline *models.Pipeline) error {
	for workflowName, workflow := range pipeline.Workflows {
		if workflow == nil {
			continue
		}

		for _, jobRef := range workflow.Jobs {
			_, ok := pipeline.Jobs[jobRef]
			if !ok {
				return fmt.Errorf("workflow %q references unknown job %q", workflowName, jobRef)
			}
		}
	}

	return nil
}

// ValidateJob applies struct-level validation to a single job.
func ValidateJob(job *models.Job) error {
	err := validate.Struct(job)
	if err != nil {
		return fmt.Errorf("job validation failed: %w", err)
	}

	return nil
}

// Package file provides file-based persistence for pipelines and run results.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/lorry-ci/lorry/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file
// system: one JSON document per entity under the root directory.
type Persistence struct {
	root         string
	pipelineRepo *PipelineRepository
	runRepo      *RunResultRepository
}

func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		pipelineRepo: NewPipelineRepository(cleanRoot),
		runRepo:      NewRunResultRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) PipelineRepository() persistence.PipelineRepository {
	return fp.pipelineRepo
}

func (fp *Persistence) RunResultRepository() persistence.RunResultRepository {
	return fp.runRepo
}

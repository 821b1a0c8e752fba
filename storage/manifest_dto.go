package storage

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alekLukanen/csv2parquet/elements"
)

type ManifestColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

func ManifestColumnsFromSchema(schema *elements.Schema) []ManifestColumn {
	columns := make([]ManifestColumn, schema.NumColumns())
	for i, col := range schema.Columns() {
		columns[i] = ManifestColumn{Name: col.Name, Type: col.Type.String(), Nullable: col.Nullable}
	}
	return columns
}

type ManifestFile struct {
	InputPath    string           `json:"input_path"`
	OutputPath   string           `json:"output_path"`
	ObjectKey    string           `json:"object_key,omitempty"`
	NumRows      int64            `json:"num_rows"`
	NumRowGroups int              `json:"num_row_groups"`
	Skipped      bool             `json:"skipped,omitempty"`
	Columns      []ManifestColumn `json:"columns,omitempty"`
}

func (obj *ManifestFile) Validate() error {
	if obj.InputPath == "" {
		return fmt.Errorf("%w: input path is required", ErrManifestInvalid)
	}
	if obj.OutputPath == "" {
		return fmt.Errorf("%w: output path is required", ErrManifestInvalid)
	}
	if obj.NumRows < 0 {
		return fmt.Errorf("%w: num rows must be positive", ErrManifestInvalid)
	}
	if obj.NumRowGroups < 0 {
		return fmt.Errorf("%w: num row groups must be positive", ErrManifestInvalid)
	}
	return nil
}

// RunManifest records what one invocation converted.
type RunManifest struct {
	Id         string                 `json:"id"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Workers    int                    `json:"workers"`
	Files      []ManifestFile         `json:"files"`
	Failures   []elements.ErrorRecord `json:"failures"`
}

func NewRunManifestFromBytes(data []byte) (*RunManifest, error) {
	manifest := &RunManifest{}
	err := json.Unmarshal(data, manifest)
	if err != nil {
		return nil, err
	}

	manifest.SortFiles()
	if ifErr := manifest.Validate(); ifErr != nil {
		return nil, ifErr
	}

	return manifest, nil
}

func (obj *RunManifest) ToBytes() ([]byte, error) {
	return json.MarshalIndent(obj, "", "  ")
}

func (obj *RunManifest) SortFiles() {
	slices.SortFunc(obj.Files, func(a, b ManifestFile) int {
		return cmp.Compare(a.InputPath, b.InputPath)
	})
	slices.SortFunc(obj.Failures, func(a, b elements.ErrorRecord) int {
		return cmp.Compare(a.FilePath, b.FilePath)
	})
}

func (obj *RunManifest) Validate() error {
	if obj.Id == "" {
		return fmt.Errorf("%w: id is required", ErrManifestInvalid)
	}
	if !obj.FinishedAt.IsZero() && obj.FinishedAt.Before(obj.StartedAt) {
		return fmt.Errorf("%w: finished before it started", ErrManifestInvalid)
	}

	for idx, file := range obj.Files {
		if ifErr := file.Validate(); ifErr != nil {
			return fmt.Errorf("%w: file at index %d is invalid: %v", ErrManifestInvalid, idx, ifErr)
		}
	}
	for idx, failure := range obj.Failures {
		if failure.FilePath == "" {
			return fmt.Errorf("%w: failure at index %d has no file path", ErrManifestInvalid, idx)
		}
	}

	return nil
}

// RunManifestBuilder collects files from concurrent workers.
type RunManifestBuilder struct {
	mu       sync.Mutex
	manifest RunManifest
}

func NewRunManifestBuilder(id string, startedAt time.Time, workers int) *RunManifestBuilder {
	return &RunManifestBuilder{
		manifest: RunManifest{
			Id:        id,
			StartedAt: startedAt.UTC(),
			Workers:   workers,
			Files:     make([]ManifestFile, 0),
			Failures:  make([]elements.ErrorRecord, 0),
		},
	}
}

func (obj *RunManifestBuilder) AddFile(file ManifestFile) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.manifest.Files = append(obj.manifest.Files, file)
}

// Build finishes the manifest with the run's failures.
func (obj *RunManifestBuilder) Build(finishedAt time.Time, failures []elements.ErrorRecord) *RunManifest {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	manifest := obj.manifest
	manifest.FinishedAt = finishedAt.UTC()
	manifest.Files = slices.Clone(obj.manifest.Files)
	manifest.Failures = append(make([]elements.ErrorRecord, 0, len(failures)), failures...)
	manifest.SortFiles()
	return &manifest
}

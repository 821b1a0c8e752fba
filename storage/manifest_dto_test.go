package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/stretchr/testify/assert"
)

func TestRunManifest_Validate(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		manifest RunManifest
		valid    bool
	}{
		{
			manifest: RunManifest{Id: "run", StartedAt: started, FinishedAt: started.Add(time.Minute)},
			valid:    true,
		},
		{
			manifest: RunManifest{StartedAt: started},
			valid:    false,
		},
		{
			manifest: RunManifest{Id: "run", StartedAt: started, FinishedAt: started.Add(-time.Minute)},
			valid:    false,
		},
		{
			manifest: RunManifest{Id: "run", Files: []ManifestFile{{InputPath: "a.csv"}}},
			valid:    false,
		},
		{
			manifest: RunManifest{Id: "run", Files: []ManifestFile{{InputPath: "a.csv", OutputPath: "a.parquet", NumRows: -1}}},
			valid:    false,
		},
		{
			manifest: RunManifest{Id: "run", Failures: []elements.ErrorRecord{{Error: "x"}}},
			valid:    false,
		},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("case_%d", idx), func(t *testing.T) {
			err := tc.manifest.Validate()
			if tc.valid {
				assert.Nil(t, err)
			} else {
				assert.ErrorIs(t, err, ErrManifestInvalid)
			}
		})
	}
}

func TestRunManifestBuilder_IsConcurrencySafe(t *testing.T) {
	builder := NewRunManifestBuilder("run", time.Now(), 8)

	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func() {
			builder.AddFile(ManifestFile{InputPath: fmt.Sprintf("f%02d.csv", i), OutputPath: "o"})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}

	manifest := builder.Build(time.Now(), nil)
	assert.Len(t, manifest.Files, 50)
	assert.Equal(t, "f00.csv", manifest.Files[0].InputPath)
	assert.Equal(t, "f49.csv", manifest.Files[49].InputPath)
	assert.NotNil(t, manifest.Failures)
	assert.Nil(t, manifest.Validate())
}

func TestManifestColumnsFromSchema(t *testing.T) {
	schema, err := elements.NewSchema(
		elements.ColumnDef{Name: "id", Type: elements.TypeInteger},
		elements.ColumnDef{Name: "score", Type: elements.TypeFloat, Nullable: true},
	)
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	assert.Equal(t, []ManifestColumn{
		{Name: "id", Type: "integer", Nullable: false},
		{Name: "score", Type: "float", Nullable: true},
	}, ManifestColumnsFromSchema(schema))
}

package operations

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/alekLukanen/csv2parquet/elements"
)

const DefaultInputPattern = "*.csv"

// FindFiles expands pattern into a sorted list of regular files. A
// directory expands to the .csv files directly inside it. No matches is
// not an error.
func FindFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultInputPattern
	}

	if info, err := os.Stat(pattern); err == nil && info.IsDir() {
		pattern = filepath.Join(pattern, DefaultInputPattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, elements.NewStackError(fmt.Errorf("%w| %s: %w", ErrInvalidPattern, pattern, err))
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, match)
	}
	slices.Sort(files)
	return files, nil
}

// BuildConversionTasks pairs every input with its parquet output path.
func BuildConversionTasks(inputs []string, outputDir string) []elements.ConversionTask {
	tasks := make([]elements.ConversionTask, len(inputs))
	for i, input := range inputs {
		tasks[i] = elements.ConversionTask{
			InputPath:  input,
			OutputPath: ResolveOutputPath(input, outputDir),
		}
	}
	return tasks
}

// OutputCollisions returns output paths claimed by more than one input,
// such as a.csv and a.tsv in the same directory.
func OutputCollisions(tasks []elements.ConversionTask) []string {
	seen := make(map[string]int, len(tasks))
	for _, task := range tasks {
		seen[task.OutputPath]++
	}

	collisions := make([]string, 0)
	reported := make(map[string]struct{})
	for _, task := range tasks {
		key := task.OutputPath
		if seen[key] > 1 {
			if _, ok := reported[key]; !ok {
				collisions = append(collisions, task.OutputPath)
				reported[key] = struct{}{}
			}
		}
	}
	return collisions
}

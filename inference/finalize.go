package inference

import (
	"fmt"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/errs"
)

// FinalizeSchema turns sampled candidates into an immutable schema.
// Columns with no evidence become nullable strings and repeated names
// receive _1, _2, ... suffixes in order of appearance.
func FinalizeSchema(candidates []elements.ColumnCandidate) (*elements.Schema, error) {
	if len(candidates) == 0 {
		return nil, elements.NewStackError(elements.ErrEmptySchema)
	}

	names := make([]string, len(candidates))
	for i, cand := range candidates {
		names[i] = cand.Name
	}
	names = DisambiguateNames(names)

	columns := make([]elements.ColumnDef, len(candidates))
	for i, cand := range candidates {
		col := elements.ColumnDef{
			Name:     names[i],
			Type:     cand.WidestType,
			Nullable: cand.SeenNull,
		}
		if col.Type == elements.TypeNull {
			col.Type = elements.TypeString
			col.Nullable = true
		}
		columns[i] = col
	}

	schema, err := elements.NewSchema(columns...)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return schema, nil
}

// DisambiguateNames keeps the first occurrence of each name and appends
// the smallest unused numeric suffix to later ones.
func DisambiguateNames(names []string) []string {
	taken := make(map[string]struct{}, len(names))
	for _, name := range names {
		taken[name] = struct{}{}
	}

	result := make([]string, len(names))
	assigned := make(map[string]struct{}, len(names))
	for i, name := range names {
		if _, ok := assigned[name]; !ok {
			result[i] = name
			assigned[name] = struct{}{}
			continue
		}

		for suffix := 1; ; suffix++ {
			candidate := fmt.Sprintf("%s_%d", name, suffix)
			_, isAssigned := assigned[candidate]
			_, isOriginal := taken[candidate]
			if !isAssigned && !isOriginal {
				result[i] = candidate
				assigned[candidate] = struct{}{}
				break
			}
		}
	}
	return result
}

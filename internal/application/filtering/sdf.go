package filtering

import (
	"bytes"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
)

// EncodePasses serialises the passing poses of a verdict batch as an SD file.
// Returns nil bytes when no candidate passed.
func EncodePasses(verdicts []*merge.FilterResult) ([]byte, error) {
	var records []chem.SDFRecord
	for _, v := range verdicts {
		if !v.Passed() || v.Pose == nil {
			continue
		}
		records = append(records, chem.SDFRecord{
			Mol: v.Pose,
			Fields: map[string]string{
				"candidate": v.Candidate.Name,
				"smiles":    v.Candidate.SMILES,
			},
		})
	}
	if len(records) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := chem.WriteSDF(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

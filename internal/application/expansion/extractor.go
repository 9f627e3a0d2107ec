package expansion

import (
	"context"
	"strings"

	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// Edge labels are pipe-delimited; the synthon SMILES of the two fragmentation
// products sit at these positions.
const (
	labelFieldCount    = 5
	synthonFieldFirst  = 1
	synthonFieldSecond = 4
)

// SynthonExtractor derives the unique synthons of a fragment from the FRAG
// edge labels below its node in the network.
type SynthonExtractor struct {
	repo   GraphRepository
	logger logging.Logger
}

// NewSynthonExtractor wires an extractor.
func NewSynthonExtractor(repo GraphRepository, logger logging.Logger) *SynthonExtractor {
	return &SynthonExtractor{repo: repo, logger: logger.Named("synthon-extractor")}
}

// ExtractSynthons returns the unique, canonicalised synthons of the fragment
// with the given SMILES.  Malformed edge labels and tokens that fail synthon
// validation are skipped, not fatal: the network contains fragmentations
// (ring splits, multi-cut pieces) that are not usable synthons, and their
// presence must not sink the whole fragment.  A fragment absent from the
// network is an error.
func (e *SynthonExtractor) ExtractSynthons(ctx context.Context, smiles string) ([]*merge.Synthon, error) {
	exists, err := e.repo.NodeExists(ctx, smiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGraphQueryFailed, "checking fragment node")
	}
	if !exists {
		return nil, errors.New(errors.CodeFragmentNotFound,
			"fragment is not a node in the network").WithDetail(smiles)
	}

	labels, err := e.repo.DescendantEdgeLabels(ctx, smiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGraphQueryFailed, "fetching descendant edges")
	}

	seen := make(map[string]bool)
	var synthons []*merge.Synthon
	skipped := 0
	for _, label := range labels {
		for _, token := range synthonTokens(label) {
			s, err := merge.NewSynthon(token)
			if err != nil {
				skipped++
				continue
			}
			if seen[s.SMILES] {
				continue
			}
			seen[s.SMILES] = true
			synthons = append(synthons, s)
		}
	}

	e.logger.Debug("extracted synthons",
		logging.String("smiles", smiles),
		logging.Int("labels", len(labels)),
		logging.Int("synthons", len(synthons)),
		logging.Int("skipped_tokens", skipped),
	)
	return synthons, nil
}

// synthonTokens pulls the candidate synthon SMILES out of one edge label.
// Labels with too few fields yield nothing; tokens without an attachment
// marker are dropped here so NewSynthon sees only plausible input.
func synthonTokens(label string) []string {
	parts := strings.Split(label, "|")
	if len(parts) < labelFieldCount {
		return nil
	}
	var tokens []string
	for _, idx := range []int{synthonFieldFirst, synthonFieldSecond} {
		token := strings.TrimSpace(parts[idx])
		if token != "" && strings.Contains(token, "["+merge.AttachmentSymbol+"]") {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

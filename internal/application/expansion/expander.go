package expansion

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kate-fie/fragment-network-merges/internal/config"
	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// SynthonExpander runs fragment-network expansion for ordered fragment pairs.
// When one base is expanded against several partners the synthons are pooled
// and deduplicated across partners first, so each unique synthon costs one
// graph query regardless of how many partners produced it.
type SynthonExpander struct {
	repo      GraphRepository
	extractor *SynthonExtractor
	cfg       config.MergeConfig
	logger    logging.Logger
}

// NewSynthonExpander wires an expander with its merge parameters.
func NewSynthonExpander(repo GraphRepository, extractor *SynthonExtractor, cfg config.MergeConfig, logger logging.Logger) *SynthonExpander {
	return &SynthonExpander{
		repo:      repo,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger.Named("expander"),
	}
}

// Expand generates merge candidates for the ordered pair (base, partner):
// the partner is carved into synthons and the network is queried for vendor
// compounds extending the base fragment through each one.  An empty candidate
// list is a valid outcome, not an error.  Either fragment missing from the
// network is an error.
func (x *SynthonExpander) Expand(ctx context.Context, base, partner *merge.Fragment) (*merge.ExpansionResult, error) {
	results, partnerErrs, err := x.expandWithPartners(ctx, base, []*merge.Fragment{partner})
	if err != nil {
		return nil, err
	}
	if partnerErrs[0] != nil {
		return nil, partnerErrs[0]
	}
	return results[0], nil
}

// expandWithPartners pools the partners' synthons, queries each unique synthon
// once, and assembles one result per partner.  The returned error slice is
// parallel to partners and carries per-partner fragment-not-found errors; the
// trailing error is fatal for the whole base (missing base node or an
// infrastructure failure).
func (x *SynthonExpander) expandWithPartners(ctx context.Context, base *merge.Fragment, partners []*merge.Fragment) ([]*merge.ExpansionResult, []error, error) {
	exists, err := x.repo.NodeExists(ctx, base.SMILES)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeGraphQueryFailed, "checking base fragment node")
	}
	if !exists {
		return nil, nil, errors.New(errors.CodeFragmentNotFound,
			"base fragment is not a node in the network").WithDetail(base.FullName())
	}

	perPartner := make([][]*merge.Synthon, len(partners))
	partnerErrs := make([]error, len(partners))
	// owners counts how many partners contributed each synthon; a count of one
	// marks the synthon as uniquely contributed.
	owners := make(map[string]int)
	var pool []string
	for i, p := range partners {
		synthons, err := x.extractor.ExtractSynthons(ctx, p.SMILES)
		if err != nil {
			if errors.IsCode(err, errors.CodeFragmentNotFound) {
				partnerErrs[i] = err
				continue
			}
			return nil, nil, err
		}
		perPartner[i] = synthons
		for _, s := range synthons {
			if owners[s.SMILES] == 0 {
				pool = append(pool, s.SMILES)
			}
			owners[s.SMILES]++
		}
	}
	sort.Strings(pool)

	hitsBySynthon := make(map[string][]ExpansionHit, len(pool))
	for _, synthon := range pool {
		hits, err := x.repo.BoundedExpansion(ctx, base.SMILES, synthon, x.cfg.MaxHops, x.cfg.MinHeavyAtoms)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeGraphQueryFailed, "bounded expansion query")
		}
		hitsBySynthon[synthon] = hits
	}

	results := make([]*merge.ExpansionResult, len(partners))
	for i, p := range partners {
		if partnerErrs[i] != nil {
			continue
		}
		results[i] = x.assemble(base, p, perPartner[i], owners, hitsBySynthon)
	}
	return results, partnerErrs, nil
}

// assemble builds one partner's result from the pooled query hits.
func (x *SynthonExpander) assemble(base, partner *merge.Fragment, synthons []*merge.Synthon, owners map[string]int, hitsBySynthon map[string][]ExpansionHit) *merge.ExpansionResult {
	result := &merge.ExpansionResult{
		Target:        base.Target,
		FragmentA:     base.Name,
		FragmentB:     partner.Name,
		SynthonsTried: len(synthons),
		GeneratedAt:   time.Now().UTC(),
	}

	// Dedupe across synthons by canonical SMILES; the same vendor compound
	// is frequently reachable through multiple synthons.
	seen := map[string]bool{base.SMILES: true, partner.SMILES: true}
	for _, syn := range synthons {
		result.Synthons = append(result.Synthons, syn.SMILES)
		if owners[syn.SMILES] == 1 {
			result.UniqueSynthons = append(result.UniqueSynthons, syn.SMILES)
		}
		for _, hit := range hitsBySynthon[syn.SMILES] {
			canonical, err := chem.CanonicalSmiles(hit.SMILES)
			if err != nil {
				x.logger.Warn("skipping unparseable expansion hit",
					logging.String("smiles", hit.SMILES), logging.Err(err))
				continue
			}
			if seen[canonical] {
				continue
			}
			seen[canonical] = true
			result.Candidates = append(result.Candidates, merge.Candidate{
				Name:      merge.CandidateName(base.Name, partner.Name, len(result.Candidates)),
				SMILES:    canonical,
				FragmentA: base.Name,
				FragmentB: partner.Name,
				Synthon:   syn.SMILES,
			})
		}
	}

	x.logger.Info("expanded fragment pair",
		logging.String("pair", merge.PairName(base.Name, partner.Name)),
		logging.Int("synthons", len(synthons)),
		logging.Int("candidates", len(result.Candidates)),
	)
	return result
}

// PairResult couples one ordered pair's result with its position in the
// generated pair sequence, so concurrent output can be re-ordered.
type PairResult struct {
	Index  int
	Result *merge.ExpansionResult
	Err    error
}

// ExpandAll expands every ordered pair of the given fragments (A≠B) with
// bounded concurrency and returns results in pair-generation order.  Pairs
// are grouped by base fragment so that synthons pool across the base's
// partners.  Pairs whose base or partner is missing from the network are
// reported in their PairResult rather than aborting the run; infrastructure
// errors cancel the whole batch.
func (x *SynthonExpander) ExpandAll(ctx context.Context, fragments []*merge.Fragment, concurrency int) ([]PairResult, error) {
	type baseGroup struct {
		base     *merge.Fragment
		partners []*merge.Fragment
		offsets  []int
	}
	var groups []baseGroup
	total := 0
	for _, a := range fragments {
		grp := baseGroup{base: a}
		for _, b := range fragments {
			if a.Name == b.Name {
				continue
			}
			grp.partners = append(grp.partners, b)
			grp.offsets = append(grp.offsets, total)
			total++
		}
		if len(grp.partners) > 0 {
			groups = append(groups, grp)
		}
	}

	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]PairResult, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, grp := range groups {
		grp := grp
		g.Go(func() error {
			pairResults, partnerErrs, err := x.expandWithPartners(gctx, grp.base, grp.partners)
			if err != nil {
				if !errors.IsCode(err, errors.CodeFragmentNotFound) {
					return err // infrastructure failure aborts the batch
				}
				for _, idx := range grp.offsets {
					results[idx] = PairResult{Index: idx, Err: err}
				}
				return nil
			}
			for j, idx := range grp.offsets {
				results[idx] = PairResult{Index: idx, Result: pairResults[j], Err: partnerErrs[j]}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

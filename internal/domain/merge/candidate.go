package merge

import (
	"time"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Merge candidates
// ─────────────────────────────────────────────────────────────────────────────

// Candidate is one merged molecule proposed by network expansion: a vendor
// compound that contains fragment A's neighbourhood extended through one of
// fragment B's synthons.
type Candidate struct {
	// Name is the pair-scoped identifier, e.g. "x0107_0A_x0434_0B_3".
	Name string `json:"name"`
	// SMILES is the canonical SMILES of the merged molecule.
	SMILES string `json:"smiles"`
	// FragmentA and FragmentB name the source pair.
	FragmentA string `json:"fragment_a"`
	// FragmentB is the partner whose synthon seeded this candidate.
	FragmentB string `json:"fragment_b"`
	// Synthon is the canonical synthon SMILES that produced the candidate.
	Synthon string `json:"synthon"`
	// Mol is populated by the filter pipeline when a pose is built.
	Mol *chem.Mol `json:"-"`
}

// ExpansionResult is the full output of expanding one ordered fragment pair.
type ExpansionResult struct {
	Target     string      `json:"target"`
	FragmentA  string      `json:"fragment_a"`
	FragmentB  string      `json:"fragment_b"`
	Candidates []Candidate `json:"candidates"`
	// Synthons lists the partner's synthons in extraction order.
	Synthons []string `json:"synthons,omitempty"`
	// UniqueSynthons lists the synthons only this partner contributed when
	// the base was expanded against several partners at once.
	UniqueSynthons []string `json:"unique_synthons,omitempty"`
	// SynthonsTried counts the synthons queried, including those that
	// produced no expansions.
	SynthonsTried int       `json:"synthons_tried"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Filter verdicts
// ─────────────────────────────────────────────────────────────────────────────

// FilterStatus is the terminal verdict for one candidate.
type FilterStatus string

const (
	// StatusPass means every stage accepted the candidate.
	StatusPass FilterStatus = "PASS"
	// StatusFail means some stage rejected the candidate.
	StatusFail FilterStatus = "FAIL"
)

// StageRecord captures one stage's verdict for a candidate.
type StageRecord struct {
	Stage  string `json:"stage"`
	Passed bool   `json:"passed"`
	// Detail is a human-readable reason, populated on failure and for
	// diagnostics such as the energy ratio.
	Detail string `json:"detail,omitempty"`
	// Value is the stage's headline number when it has one: the energy
	// ratio for embedding, the clash fraction for overlap, the offending
	// descriptor for rejections.  Nil when the stage has nothing numeric
	// to report.
	Value *float64 `json:"value,omitempty"`
}

// FilterResult is the pipeline verdict for one candidate: the terminal status
// plus a record for every stage that ran.  Stages after the first failure do
// not run, so Records is a prefix of the configured stage list.
type FilterResult struct {
	Candidate Candidate     `json:"candidate"`
	Status    FilterStatus  `json:"status"`
	Records   []StageRecord `json:"records"`
	// Pose carries the final embedded conformer for passing candidates.
	Pose *chem.Mol `json:"-"`
	// Elapsed is the wall-clock filtering time for this candidate.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Passed reports whether the candidate survived every stage.
func (r *FilterResult) Passed() bool { return r.Status == StatusPass }

// FailedStage returns the name of the stage that rejected the candidate, or
// an empty string for passing candidates.
func (r *FilterResult) FailedStage() string {
	for _, rec := range r.Records {
		if !rec.Passed {
			return rec.Stage
		}
	}
	return ""
}

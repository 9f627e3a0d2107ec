package filtering

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate-fie/fragment-network-merges/internal/config"
	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// stubStage is a configurable test stage that counts invocations.
type stubStage struct {
	name   string
	calls  atomic.Int64
	pass   bool
	detail string
	err    error
}

func (s *stubStage) Name() string { return s.name }

func (s *stubStage) Check(_ context.Context, _ *CandidateState, _ *PairContext) (Verdict, error) {
	s.calls.Add(1)
	if s.err != nil {
		return Verdict{}, s.err
	}
	return Verdict{Passed: s.pass, Detail: s.detail}, nil
}

func testCandidate(smiles string) merge.Candidate {
	return merge.Candidate{
		Name: "fa_fb_0", SMILES: smiles,
		FragmentA: "fa", FragmentB: "fb",
		Synthon: "[Xe]O",
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline
// ─────────────────────────────────────────────────────────────────────────────

func TestPipeline_ShortCircuits(t *testing.T) {
	first := &stubStage{name: "first", pass: false, detail: "rejected here"}
	second := &stubStage{name: "second", pass: true}
	p := NewPipeline(logging.NewNopLogger(), first, second)

	result, err := p.Filter(context.Background(), testCandidate("CCO"), nil)
	require.NoError(t, err)

	assert.Equal(t, merge.StatusFail, result.Status)
	require.Len(t, result.Records, 1, "records are a prefix of the stage list")
	assert.Equal(t, "first", result.Records[0].Stage)
	assert.Equal(t, "rejected here", result.Records[0].Detail)
	assert.Equal(t, int64(1), first.calls.Load())
	assert.Equal(t, int64(0), second.calls.Load(), "stages after a rejection must not run")
}

func TestPipeline_AllStagesPass(t *testing.T) {
	first := &stubStage{name: "first", pass: true}
	second := &stubStage{name: "second", pass: true}
	p := NewPipeline(logging.NewNopLogger(), first, second)

	result, err := p.Filter(context.Background(), testCandidate("CCO"), nil)
	require.NoError(t, err)

	assert.Equal(t, merge.StatusPass, result.Status)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, "", result.FailedStage())
}

func TestPipeline_UnparseableCandidateFailsAtParse(t *testing.T) {
	stage := &stubStage{name: "never", pass: true}
	p := NewPipeline(logging.NewNopLogger(), stage)

	result, err := p.Filter(context.Background(), testCandidate("C1CC"), nil)
	require.NoError(t, err, "a bad candidate is a FAIL, not an error")

	assert.Equal(t, merge.StatusFail, result.Status)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "parse", result.Records[0].Stage)
	assert.Equal(t, int64(0), stage.calls.Load())
}

func TestPipeline_StageErrorAborts(t *testing.T) {
	broken := &stubStage{name: "broken", err: errors.Internal("stage infrastructure down")}
	p := NewPipeline(logging.NewNopLogger(), broken)

	_, err := p.Filter(context.Background(), testCandidate("CCO"), nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeStageFailed, errors.GetCode(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// Descriptor stage
// ─────────────────────────────────────────────────────────────────────────────

func descriptorState(t *testing.T, smiles string) *CandidateState {
	t.Helper()
	mol, err := chem.MolFromSmiles(smiles)
	require.NoError(t, err)
	return &CandidateState{Candidate: testCandidate(smiles), Mol: mol}
}

func TestDescriptorStage(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	stage := NewDescriptorStage(cfg)

	v, err := stage.Check(context.Background(), descriptorState(t, "CCO"), nil)
	require.NoError(t, err)
	assert.True(t, v.Passed)
}

func TestDescriptorStage_Rejections(t *testing.T) {
	cfg := config.DefaultMergeConfig()

	t.Run("molecular weight", func(t *testing.T) {
		tight := cfg
		tight.MaxMolecularWeight = 30
		v, err := NewDescriptorStage(tight).Check(context.Background(), descriptorState(t, "CCO"), nil)
		require.NoError(t, err)
		assert.False(t, v.Passed)
		assert.Contains(t, v.Detail, "molecular weight")
	})

	t.Run("rotatable bonds", func(t *testing.T) {
		tight := cfg
		tight.MaxRotatableBonds = 0
		v, err := NewDescriptorStage(tight).Check(context.Background(), descriptorState(t, "CCCC"), nil)
		require.NoError(t, err)
		assert.False(t, v.Passed)
		assert.Contains(t, v.Detail, "rotatable")
	})

	t.Run("ring size", func(t *testing.T) {
		tight := cfg
		tight.MaxRingSize = 5
		v, err := NewDescriptorStage(tight).Check(context.Background(), descriptorState(t, "C1CCCCC1"), nil)
		require.NoError(t, err)
		assert.False(t, v.Passed)
		assert.Contains(t, v.Detail, "ring")
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Embedding and overlap stages
// ─────────────────────────────────────────────────────────────────────────────

// pairContext builds fragment poses with near-ideal geometry so the strain
// ratio clears the default threshold.
func pairContext(t *testing.T) *PairContext {
	t.Helper()
	fragA, err := merge.NewFragment("Mpro", "fa", "CC")
	require.NoError(t, err)
	molA, err := chem.MolFromSmiles("CC")
	require.NoError(t, err)
	molA.Conformer = []chem.Point3{{X: 0, Y: 0, Z: 0}, {X: 1.52, Y: 0, Z: 0}}
	fragA.Mol = molA

	fragB, err := merge.NewFragment("Mpro", "fb", "CO")
	require.NoError(t, err)
	molB, err := chem.MolFromSmiles("CO")
	require.NoError(t, err)
	molB.Conformer = []chem.Point3{{X: 1.52, Y: 0, Z: 0}, {X: 2.026, Y: 1.433, Z: 0}}
	fragB.Mol = molB

	return &PairContext{FragmentA: fragA, FragmentB: fragB}
}

// strainedPairContext stretches fragment A's bond far past its ideal length,
// so any candidate pinned to that pose carries strain it cannot relax away.
func strainedPairContext(t *testing.T) *PairContext {
	t.Helper()
	pc := pairContext(t)
	pc.FragmentA.Mol.Conformer = []chem.Point3{{X: 0, Y: 0, Z: 0}, {X: 3.2, Y: 0, Z: 0}}
	pc.FragmentB.Mol.Conformer = []chem.Point3{{X: 3.2, Y: 0, Z: 0}, {X: 3.726, Y: 1.433, Z: 0}}
	return pc
}

func TestEmbeddingStage_AcceptsWellPosedCandidate(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	stage := NewEmbeddingStage(cfg)
	state := descriptorState(t, "CCO")

	v, err := stage.Check(context.Background(), state, pairContext(t))
	require.NoError(t, err)
	assert.True(t, v.Passed, "detail: %s", v.Detail)
	require.NotNil(t, v.Value, "the energy ratio is reported even on a pass")
	assert.NotNil(t, state.Pose, "passing embedding must record the pose")
	assert.Len(t, state.Pose, 3)
}

func TestEmbeddingStage_RejectsStrainedPose(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	stage := NewEmbeddingStage(cfg)
	state := descriptorState(t, "CCO")

	v, err := stage.Check(context.Background(), state, strainedPairContext(t))
	require.NoError(t, err, "a strained candidate is a rejection, not a stage failure")
	assert.False(t, v.Passed)
	assert.Contains(t, v.Detail, "energy ratio")
	require.NotNil(t, v.Value)
	assert.Greater(t, *v.Value, cfg.EnergyRatioThreshold)
	assert.Nil(t, state.Pose)
}

func TestEmbeddingStage_UnusableSynthonFails(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	stage := NewEmbeddingStage(cfg)
	state := descriptorState(t, "CCO")
	state.Candidate.Synthon = "not-a-synthon"

	v, err := stage.Check(context.Background(), state, pairContext(t))
	require.NoError(t, err, "a bad synthon is a candidate defect, not a stage failure")
	assert.False(t, v.Passed)
	assert.Contains(t, v.Detail, "synthon")
}

func TestEmbeddingStage_NoCommonSubstructure(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	stage := NewEmbeddingStage(cfg)

	// Candidate shares no element with either fragment pose.
	pc := pairContext(t)
	state := descriptorState(t, "N")

	v, err := stage.Check(context.Background(), state, pc)
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Contains(t, v.Detail, "no common substructure")
}

func TestEmbeddingStage_MissingPoseIsError(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	stage := NewEmbeddingStage(cfg)

	pc := pairContext(t)
	pc.FragmentA.Mol.Conformer = nil

	_, err := stage.Check(context.Background(), descriptorState(t, "CCO"), pc)
	require.Error(t, err)
}

func TestOverlapStage(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	stage := NewOverlapStage(cfg)

	receptor := chem.NewMol()
	receptor.AddAtom(chem.Atom{Symbol: "C"})
	receptor.Conformer = []chem.Point3{{X: 100, Y: 100, Z: 100}}

	state := descriptorState(t, "CCO")
	state.Pose = []chem.Point3{{X: 0, Y: 0, Z: 0}, {X: 1.5, Y: 0, Z: 0}, {X: 2, Y: 1.4, Z: 0}}

	v, err := stage.Check(context.Background(), state, &PairContext{Receptor: receptor})
	require.NoError(t, err)
	assert.True(t, v.Passed)

	// Move the receptor on top of the pose: every atom clashes.
	receptor.Conformer = []chem.Point3{{X: 0, Y: 0, Z: 0}, {X: 1.5, Y: 0, Z: 0}, {X: 2, Y: 1.4, Z: 0}}
	receptor.AddAtom(chem.Atom{Symbol: "C"})
	receptor.AddAtom(chem.Atom{Symbol: "C"})
	v, err = stage.Check(context.Background(), state, &PairContext{Receptor: receptor})
	require.NoError(t, err)
	assert.False(t, v.Passed)
}

func TestOverlapStage_NoReceptorPasses(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	v, err := NewOverlapStage(cfg).Check(context.Background(), descriptorState(t, "CCO"), &PairContext{})
	require.NoError(t, err)
	assert.True(t, v.Passed)
}

func TestDefaultStages_FullPass(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	p := NewPipeline(logging.NewNopLogger(), DefaultStages(cfg)...)

	result, err := p.Filter(context.Background(), testCandidate("CCO"), pairContext(t))
	require.NoError(t, err)

	assert.Equal(t, merge.StatusPass, result.Status, "records: %+v", result.Records)
	assert.Len(t, result.Records, 3)
	require.NotNil(t, result.Pose)
	assert.True(t, result.Pose.HasConformer())
}

func TestDefaultStages_StrainedCandidateFailsAtEmbedding(t *testing.T) {
	cfg := config.DefaultMergeConfig()
	p := NewPipeline(logging.NewNopLogger(), DefaultStages(cfg)...)

	result, err := p.Filter(context.Background(), testCandidate("CCO"), strainedPairContext(t))
	require.NoError(t, err, "strain rejects the candidate, it does not abort the batch")

	assert.Equal(t, merge.StatusFail, result.Status)
	assert.Equal(t, StageEmbedding, result.FailedStage())
	rec := result.Records[len(result.Records)-1]
	require.NotNil(t, rec.Value, "the energy ratio travels with the stage record")
	assert.Greater(t, *rec.Value, cfg.EnergyRatioThreshold)
	assert.Nil(t, result.Pose)
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch runner
// ─────────────────────────────────────────────────────────────────────────────

func TestBatchRunner_PreservesOrder(t *testing.T) {
	// The stub passes everything; order is asserted via candidate names.
	p := NewPipeline(logging.NewNopLogger(), &stubStage{name: "s", pass: true})
	runner := NewBatchRunner(p, 3, logging.NewNopLogger())

	candidates := []merge.Candidate{
		{Name: "c0", SMILES: "C"},
		{Name: "c1", SMILES: "CC"},
		{Name: "c2", SMILES: "CCC"},
		{Name: "c3", SMILES: "CCCC"},
	}
	results, err := runner.Run(context.Background(), candidates, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, res := range results {
		assert.Equal(t, candidates[i].Name, res.Candidate.Name)
	}
}

func TestBatchRunner_StageErrorAborts(t *testing.T) {
	p := NewPipeline(logging.NewNopLogger(), &stubStage{name: "s", err: errors.Internal("boom")})
	runner := NewBatchRunner(p, 2, logging.NewNopLogger())

	_, err := runner.Run(context.Background(), []merge.Candidate{{Name: "c0", SMILES: "C"}}, nil)
	require.Error(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

type fakeResultRepo struct {
	saved []*merge.FilterResult
}

func (f *fakeResultRepo) SaveResults(_ context.Context, results []*merge.FilterResult) error {
	f.saved = append(f.saved, results...)
	return nil
}

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) PublishPass(_ context.Context, result *merge.FilterResult) error {
	f.published = append(f.published, result.Candidate.Name)
	return nil
}

func TestService_PersistsAllAndPublishesPasses(t *testing.T) {
	pass := &stubStage{name: "gate", pass: true}
	p := NewPipeline(logging.NewNopLogger(), pass)
	runner := NewBatchRunner(p, 2, logging.NewNopLogger())

	repo := &fakeResultRepo{}
	pub := &fakePublisher{}
	svc := NewService(runner, repo, pub, logging.NewNopLogger())

	expansion := &merge.ExpansionResult{
		FragmentA: "fa", FragmentB: "fb",
		Candidates: []merge.Candidate{
			{Name: "fa_fb_0", SMILES: "CCO"},
			{Name: "fa_fb_1", SMILES: "C1CC"}, // unparseable: fails at parse
		},
	}
	results, err := svc.FilterPair(context.Background(), expansion, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Len(t, repo.saved, 2, "failures are persisted too")
	assert.Equal(t, []string{"fa_fb_0"}, pub.published, "only passes are handed to placement")
}

func TestService_NilDependenciesAreSkipped(t *testing.T) {
	p := NewPipeline(logging.NewNopLogger(), &stubStage{name: "gate", pass: true})
	runner := NewBatchRunner(p, 1, logging.NewNopLogger())
	svc := NewService(runner, nil, nil, logging.NewNopLogger())

	expansion := &merge.ExpansionResult{Candidates: []merge.Candidate{{Name: "c", SMILES: "C"}}}
	results, err := svc.FilterPair(context.Background(), expansion, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kate-fie/fragment-network-merges/internal/application/filtering"
	"github.com/kate-fie/fragment-network-merges/internal/config"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/database/postgres"
	pgrepos "github.com/kate-fie/fragment-network-merges/internal/infrastructure/database/postgres/repositories"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/messaging/kafka"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/storage/local"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/structures"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

type filterOptions struct {
	target      string
	pair        []string
	outDir      string
	concurrency int
	skipDB      bool
	skipPublish bool
}

// NewFilterCmd builds the `fnmerge filter` command.
func NewFilterCmd() *cobra.Command {
	opts := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter a pair's merge candidates in 3D",
		Long: "Filter reads the pair's expansion artifact, runs every candidate through\n" +
			"the descriptor, embedding and receptor-overlap stages against the parent\n" +
			"poses, persists the verdicts, and hands passing candidates to placement.",
		Example: "  fnmerge filter --target Mpro --pair x0107_0A,x0434_0B",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFilter(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.target, "target", "", "target protein name (required)")
	f.StringSliceVar(&opts.pair, "pair", nil, "base and partner fragment names (required)")
	f.StringVar(&opts.outDir, "out", "", "artifact directory (default: paths.output_dir)")
	f.IntVar(&opts.concurrency, "concurrency", 0, "candidate filtering concurrency (default: worker.concurrency)")
	f.BoolVar(&opts.skipDB, "skip-db", false, "do not persist verdicts to the result store")
	f.BoolVar(&opts.skipPublish, "skip-publish", false, "do not hand passes to the placement topic")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("pair")

	return cmd
}

func runFilter(cmd *cobra.Command, opts *filterOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, log := cliCtx.Config, cliCtx.Logger

	if len(opts.pair) != 2 {
		return errors.New(errors.CodeInvalidParam, "--pair needs exactly two fragment names")
	}
	nameA, nameB := opts.pair[0], opts.pair[1]

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.Paths.OutputDir
	}
	store, err := local.NewStore(outDir, log)
	if err != nil {
		return err
	}

	expResult, err := readExpansionArtifact(cmd.Context(), store, nameA, nameB)
	if err != nil {
		return err
	}

	if cfg.Paths.FragmentDataDir == "" {
		return errors.New(errors.CodeInvalidParam,
			"paths.fragment_data_dir is required to load the parent poses")
	}
	loader := structures.NewLoader(cfg.Paths.FragmentDataDir, log)
	fragA, fragB, receptor, err := loader.LoadPair(opts.target, nameA, nameB)
	if err != nil {
		return err
	}
	pc := &filtering.PairContext{FragmentA: fragA, FragmentB: fragB, Receptor: receptor}

	svc, cleanup, err := buildFilterService(cmd.Context(), cfg, opts, log)
	if err != nil {
		return err
	}
	defer cleanup()

	verdicts, err := svc.FilterPair(cmd.Context(), expResult, pc)
	if err != nil {
		return err
	}

	if err := writePassArtifact(cmd.Context(), store, nameA, nameB, verdicts); err != nil {
		return err
	}
	return printFilterSummary(cmd, verdicts)
}

func readExpansionArtifact(ctx context.Context, store *local.Store, nameA, nameB string) (*merge.ExpansionResult, error) {
	name := merge.ArtifactName(nameA, nameB)
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound,
			"expansion artifact "+name+" (run `fnmerge expand` first)")
	}
	var result merge.ExpansionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "parsing expansion artifact "+name)
	}
	return &result, nil
}

// buildFilterService wires the pipeline with whatever side-effect sinks the
// configuration and flags allow.
func buildFilterService(ctx context.Context, cfg *config.Config, opts *filterOptions, log logging.Logger) (*filtering.Service, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var results filtering.ResultRepository
	if !opts.skipDB && cfg.Database.Host != "" {
		conn, err := postgres.NewConnection(ctx, cfg.Database, log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, conn.Close)
		results = pgrepos.NewResultsRepo(conn, log)
	}

	var publisher filtering.PlacementPublisher
	if !opts.skipPublish && len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, log)
		cleanups = append(cleanups, func() { _ = producer.Close() })
		publisher = producer
	}

	concurrency := opts.concurrency
	if concurrency <= 0 {
		concurrency = cfg.Worker.Concurrency
	}
	pipeline := filtering.NewPipeline(log, filtering.DefaultStages(cfg.Merge)...)
	runner := filtering.NewBatchRunner(pipeline, concurrency, log)
	return filtering.NewService(runner, results, publisher, log), cleanup, nil
}

// writePassArtifact stores the passing poses as one SD file per pair.
func writePassArtifact(ctx context.Context, store *local.Store, nameA, nameB string, verdicts []*merge.FilterResult) error {
	data, err := filtering.EncodePasses(verdicts)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	return store.Put(ctx, merge.PairName(nameA, nameB)+"_filtered.sdf", data)
}

func printFilterSummary(cmd *cobra.Command, verdicts []*merge.FilterResult) error {
	type verdictSummary struct {
		Candidate   string `json:"candidate"`
		Status      string `json:"status"`
		FailedStage string `json:"failed_stage,omitempty"`
	}
	passed := 0
	summaries := make([]verdictSummary, 0, len(verdicts))
	for _, v := range verdicts {
		if v.Passed() {
			passed++
		}
		summaries = append(summaries, verdictSummary{
			Candidate:   v.Candidate.Name,
			Status:      string(v.Status),
			FailedStage: v.FailedStage(),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "filtered %d candidates, %d passed\n", len(verdicts), passed)
	return printJSON(cmd, summaries)
}

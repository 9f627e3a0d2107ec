package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kate-fie/fragment-network-merges/internal/application/expansion"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/database/neo4j"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/database/neo4j/repositories"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/database/redis"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/storage/local"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/structures"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

type expandOptions struct {
	target      string
	fragments   []string
	smiles      []string
	outDir      string
	concurrency int
	noCache     bool
}

// NewExpandCmd builds the `fnmerge expand` command.
func NewExpandCmd() *cobra.Command {
	opts := &expandOptions{}

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Expand fragment pairs into merge candidates",
		Long: "Expand queries the fragment network for every ordered pair of the given\n" +
			"fragments: the partner fragment is carved into synthons and vendor\n" +
			"compounds extending the base fragment through each synthon become merge\n" +
			"candidates.  One JSON artifact is written per pair.",
		Example: "  fnmerge expand --target Mpro --fragments x0107_0A,x0434_0B --smiles CCO,CCN\n" +
			"  fnmerge expand --target Mpro --fragments x0107_0A,x0434_0B",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExpand(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.target, "target", "", "target protein name (required)")
	f.StringSliceVar(&opts.fragments, "fragments", nil, "fragment names, comma separated (required, at least two)")
	f.StringSliceVar(&opts.smiles, "smiles", nil, "fragment SMILES parallel to --fragments; omitted entries load from the data directory")
	f.StringVar(&opts.outDir, "out", "", "artifact output directory (default: paths.output_dir)")
	f.IntVar(&opts.concurrency, "concurrency", 0, "pair expansion concurrency (default: worker.concurrency)")
	f.BoolVar(&opts.noCache, "no-cache", false, "bypass the Redis query cache")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("fragments")

	return cmd
}

func runExpand(cmd *cobra.Command, opts *expandOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, log := cliCtx.Config, cliCtx.Logger

	if len(opts.fragments) < 2 {
		return errors.New(errors.CodeInvalidParam, "expansion needs at least two fragments")
	}
	if len(opts.smiles) > 0 && len(opts.smiles) != len(opts.fragments) {
		return errors.New(errors.CodeInvalidParam, "--smiles must be parallel to --fragments")
	}

	fragments, err := resolveFragments(opts, cfg.Paths.FragmentDataDir, log)
	if err != nil {
		return err
	}

	driver, err := neo4j.NewDriver(cfg.Neo4j, log)
	if err != nil {
		return err
	}
	defer driver.Close()

	repo := repositories.NewFragnetRepo(driver, log)
	if !opts.noCache && cfg.Redis.Addr != "" {
		client, err := redis.NewClient(cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, querying the graph directly", logging.Err(err))
		} else {
			defer client.Close()
			cache := redis.NewCache(client, cfg.Redis.KeyPrefix, cfg.Redis.DefaultTTL, log)
			repo = redis.NewCachedGraphRepo(repo, cache, log)
		}
	}

	extractor := expansion.NewSynthonExtractor(repo, log)
	expander := expansion.NewSynthonExpander(repo, extractor, cfg.Merge, log)

	concurrency := opts.concurrency
	if concurrency <= 0 {
		concurrency = cfg.Worker.Concurrency
	}
	results, err := expander.ExpandAll(cmd.Context(), fragments, concurrency)
	if err != nil {
		return err
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.Paths.OutputDir
	}
	store, err := local.NewStore(outDir, log)
	if err != nil {
		return err
	}
	writer := expansion.NewArtifactWriter(store, log)
	if err := writer.WriteAll(cmd.Context(), results); err != nil {
		return err
	}

	return printExpandSummary(cmd, results)
}

// resolveFragments builds the fragment list either from explicit SMILES or
// from the Fragalysis data directory.
func resolveFragments(opts *expandOptions, dataDir string, log logging.Logger) ([]*merge.Fragment, error) {
	fragments := make([]*merge.Fragment, 0, len(opts.fragments))

	if len(opts.smiles) > 0 {
		for i, name := range opts.fragments {
			frag, err := merge.NewFragment(opts.target, name, opts.smiles[i])
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, frag)
		}
		return fragments, nil
	}

	if dataDir == "" {
		return nil, errors.New(errors.CodeInvalidParam,
			"either --smiles or paths.fragment_data_dir must be provided")
	}
	loader := structures.NewLoader(dataDir, log)
	for _, name := range opts.fragments {
		frag, err := loader.LoadFragment(opts.target, name)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, frag)
	}
	return fragments, nil
}

func printExpandSummary(cmd *cobra.Command, results []expansion.PairResult) error {
	type pairSummary struct {
		Pair       string `json:"pair"`
		Candidates int    `json:"candidates"`
		Synthons   int    `json:"synthons"`
		Error      string `json:"error,omitempty"`
	}
	summaries := make([]pairSummary, 0, len(results))
	total := 0
	for _, pr := range results {
		s := pairSummary{}
		switch {
		case pr.Err != nil:
			s.Error = pr.Err.Error()
		case pr.Result != nil:
			s.Pair = merge.PairName(pr.Result.FragmentA, pr.Result.FragmentB)
			s.Candidates = len(pr.Result.Candidates)
			s.Synthons = pr.Result.SynthonsTried
			total += s.Candidates
		}
		summaries = append(summaries, s)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "expanded %d pairs, %d candidates\n", len(results), total)
	return printJSON(cmd, summaries)
}

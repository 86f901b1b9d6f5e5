// Package cli implements the command-line front end to the query
// orchestrator: one cobra subcommand per public tool-surface operation,
// wired the way the teacher's cmd/cmd/root.go wires digestCmd and its
// siblings — a shared global engine constructed lazily, with each Run
// closure doing nothing but flag parsing and a single engine call.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lawretrieval/internal/config"
	"lawretrieval/internal/embedder"
	"lawretrieval/internal/engine"
	"lawretrieval/internal/fusion"
	"lawretrieval/internal/logger"
	"lawretrieval/internal/store"
	"lawretrieval/internal/vectorindex"
)

var (
	cfgFile string
	eng     *engine.Engine
	st      *store.Store
)

var rootCmd = &cobra.Command{
	Use:   "lawctl",
	Short: "lawctl searches and verifies Chinese statutes and their articles",
	Long: `lawctl is a retrieval engine over Chinese national laws, regulations,
and judicial interpretations. It resolves short names and legal
aliases, expands legal concepts to candidate articles, ranks full-text
and semantic search hits by reciprocal rank fusion, and verifies
statute citations found in arbitrary text.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return setupEngine(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			_ = st.Close()
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./.lawctl.yaml or $HOME/.lawctl.yaml)")

	rootCmd.AddCommand(searchLawsCmd)
	rootCmd.AddCommand(getArticleCmd)
	rootCmd.AddCommand(searchArticleContentCmd)
	rootCmd.AddCommand(checkLawValidityCmd)
	rootCmd.AddCommand(getLawStructureCmd)
	rootCmd.AddCommand(getLegalBasisCmd)
	rootCmd.AddCommand(batchVerifyCitationsCmd)
	rootCmd.AddCommand(clearCachesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(browseCmd)
}

func initConfig() {
	_, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(viper.GetString("app.log_level"))
	logger.Init()
}

// noopEmbedder stands in for a real embedder when no API key is
// configured, so the vector index's Search degrades through its
// existing encode-failure path instead of calling a nil interface.
type noopEmbedder struct{}

func (noopEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedder not configured")
}

// setupEngine constructs the global store and engine on first use,
// mirroring the teacher's lazy db-open pattern in runDigest.
func setupEngine(ctx context.Context) error {
	if eng != nil {
		return nil
	}

	cfg := config.Get()

	s, err := store.NewStore(cfg.Store.DataDir, cfg.Store.PoolSize, [3]int{cfg.Cache.AliasSize, cfg.Cache.LawSize, cfg.Cache.ConceptSize})
	if err != nil {
		return fmt.Errorf("lawctl: failed to open store: %w", err)
	}
	st = s

	var emb engine.Embedder = noopEmbedder{}
	if cfg.Embedder.APIKey != "" {
		e, err := embedder.New(ctx, cfg.Embedder.APIKey, cfg.Embedder.Model, cfg.Embedder.Dimension)
		if err != nil {
			logger.Warn("lawctl: embedder unavailable, semantic search disabled", "error", err.Error())
		} else {
			emb = e
		}
	} else {
		logger.Warn("lawctl: no GEMINI_API_KEY set, semantic search disabled")
	}

	eng = engine.New(ctx, s, emb, engine.Options{
		FusionWeights: fusion.Weights{
			Concept: cfg.Fusion.ConceptWeight,
			FTS:     cfg.Fusion.FTSWeight,
			Vector:  cfg.Fusion.VectorWeight,
		},
		RRFK: cfg.Fusion.K,
		Boost: vectorindex.BoostConfig{
			CoreLawTitles:         cfg.Boost.CoreLawTitles,
			CoreLawFactor:         cfg.Boost.CoreLawFactor,
			ShortArticleThreshold: cfg.Boost.ShortArticleThreshold,
			ShortArticleFactor:    cfg.Boost.ShortArticleFactor,
			TinyArticleThreshold:  cfg.Boost.TinyArticleThreshold,
			TinyArticleFactor:     cfg.Boost.TinyArticleFactor,
		},
		VectorWaitTimeout:   cfg.Vector.PreloadTimeout,
		VectorSearchTimeout: cfg.Vector.SearchTimeout,
	})
	return nil
}

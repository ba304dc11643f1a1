// Command evaluate fits a retrieval model over a product catalog, ranks a
// labelled query set and prints MAP@k and graded MAP@k.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/postgres"
)

var (
	productsPath string
	queriesPath  string
	modelName    string
	topK         int
	configPath   string
	fromDB       bool
	saveRun      bool
	outputJSON   bool
	threshold    float64
)

var rootCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a retrieval model against labelled queries",
	Long: `Fits the selected model over the product catalog, retrieves the top k
products for every labelled query and reports MAP@k and graded MAP@k.

Products come from a CSV (product_id,title,description) or, with --from-db,
from the configured PostgreSQL table. Queries come from a CSV with
query and relevant_product_ids columns, ids separated by '|'.`,
	SilenceUsage: true,
	RunE:         runEvaluate,
}

func init() {
	rootCmd.Flags().StringVar(&productsPath, "products", "", "product catalog CSV (required unless --from-db)")
	rootCmd.Flags().StringVar(&queriesPath, "queries", "", "labelled query CSV")
	rootCmd.Flags().StringVarP(&modelName, "model", "m", "tfidf_char_word", "retrieval model (tfidf_char_word, bm25)")
	rootCmd.Flags().IntVar(&topK, "k", 10, "ranking depth")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.Flags().BoolVar(&fromDB, "from-db", false, "load products from PostgreSQL instead of --products")
	rootCmd.Flags().BoolVar(&saveRun, "save", false, "persist the run to PostgreSQL")
	rootCmd.Flags().BoolVar(&outputJSON, "json", false, "output the full report as JSON")
	rootCmd.Flags().Float64Var(&threshold, "gain-threshold", ranking.DefaultGainThreshold, "minimum partial-match gain")
	_ = rootCmd.MarkFlagRequired("queries")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	if productsPath == "" && !fromDB {
		return errors.New("--products is required unless --from-db is set")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, "text")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := retrieval.ParseModel(modelName)
	if err != nil {
		return err
	}

	var pg *postgres.Client
	if fromDB || saveRun {
		if !cfg.Postgres.Enabled() {
			return errors.New("postgres host not configured (set postgres.host or CR_POSTGRES_HOST)")
		}
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
	}

	items, err := loadProducts(ctx, pg, cfg.Catalog.Table)
	if err != nil {
		return err
	}
	queries, err := catalog.LoadQueriesFile(queriesPath)
	if err != nil {
		return err
	}
	slog.Info("inputs loaded", "products", len(items), "queries", len(queries), "model", model)

	pipeline, err := retrieval.NewPipeline(model, retrieval.OptionsFromConfig(cfg.Retrieval))
	if err != nil {
		return err
	}
	if err := pipeline.Fit(items); err != nil {
		return fmt.Errorf("fitting %s: %w", model, err)
	}

	report, err := evaluation.Run(ctx, pipeline, queries, topK, ranking.Gain{Threshold: threshold})
	if err != nil {
		return err
	}

	if saveRun {
		store := evaluation.NewStore(pg)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := store.SaveRun(ctx, report); err != nil {
			return err
		}
		slog.Info("evaluation run saved", "run_id", report.ID)
	}

	if outputJSON {
		return report.WriteJSON(cmd.OutOrStdout())
	}
	return report.Write(cmd.OutOrStdout())
}

func loadProducts(ctx context.Context, pg *postgres.Client, table string) ([]catalog.Item, error) {
	if fromDB {
		return catalog.NewStore(pg, table).LoadItems(ctx)
	}
	return catalog.LoadItemsFile(productsPath)
}

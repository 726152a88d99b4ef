package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asakaida/polylink/internal/entities"
	"github.com/asakaida/polylink/internal/infrastructure/config"
	"github.com/asakaida/polylink/internal/infrastructure/database"
	"github.com/asakaida/polylink/internal/infrastructure/logging"
	"github.com/asakaida/polylink/internal/infrastructure/metrics"
	"github.com/asakaida/polylink/internal/repositories"
	"github.com/asakaida/polylink/internal/repositories/sqlstore"
)

var (
	envFlag  string
	typeFlag string
	idFlag   int64

	db       *database.Database
	store    *sqlstore.Store
	logger   *zap.Logger
	recorder *metrics.Recorder
)

var rootCmd = &cobra.Command{
	Use:   "polylink",
	Short: "Inspect and maintain the polymorphic association graph",
	Long: `Inspect and maintain the polymorphic association graph.
Reads the relation_kinds, edges and links tables of the configured database.`,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
	SilenceUsage:      true,
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List relation kinds",
	RunE:  runKinds,
}

var edgesCmd = &cobra.Command{
	Use:   "edges",
	Short: "List the edges of a record and the kinds linked to them",
	RunE:  runEdges,
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete edges that no link references",
	RunE:  runGC,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	edgesCmd.Flags().StringVar(&typeFlag, "type", "", "Record type (e.g. person)")
	edgesCmd.Flags().Int64Var(&idFlag, "id", 0, "Record ID")
	_ = edgesCmd.MarkFlagRequired("type")
	_ = edgesCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(kindsCmd)
	rootCmd.AddCommand(edgesCmd)
	rootCmd.AddCommand(gcCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.InitConfig(envFlag); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err = logging.New(&cfg.Log)
	if err != nil {
		return err
	}

	db, err = database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.HealthCheck(); err != nil {
		return err
	}

	dialect, err := sqlstore.ParseDialect(db.Driver)
	if err != nil {
		return err
	}
	store = sqlstore.New(db.DB, dialect)
	recorder = metrics.NewRecorderFromConfig(&cfg.Metrics, prometheus.DefaultRegisterer)

	logger.Debug("connected to database",
		zap.String("env", envFlag),
		zap.String("driver", db.Driver),
	)
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if db != nil {
		db.Close()
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

func runKinds(cmd *cobra.Command, args []string) error {
	kinds, err := store.Kinds().List(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tNAME")
	for _, k := range kinds {
		fmt.Fprintf(w, "%d\t%s\t%s\n", k.ID, k.Owner, k.Name)
	}
	return w.Flush()
}

func runEdges(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ep := entities.Endpoint{Type: entities.TypeName(typeFlag), ID: idFlag}
	if err := ep.Validate(); err != nil {
		return err
	}

	edges, err := store.Edges().FindByEndpoint(ctx, ep)
	if err != nil {
		return err
	}

	kinds, err := store.Kinds().List(ctx)
	if err != nil {
		return err
	}
	kindByID := make(map[int64]*entities.RelationKind, len(kinds))
	for _, k := range kinds {
		kindByID[k.ID] = k
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EDGE\tOTHER\tKINDS")
	for _, edge := range edges {
		other, _ := edge.Other(ep)
		links, err := store.Links().ListByEdge(ctx, edge.ID)
		if err != nil {
			return err
		}

		names := ""
		for i, l := range links {
			if i > 0 {
				names += ", "
			}
			if k, ok := kindByID[l.KindID]; ok {
				names += k.String()
			} else {
				names += fmt.Sprintf("#%d", l.KindID)
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", edge.ID, other, names)
	}
	return w.Flush()
}

func runGC(cmd *cobra.Command, args []string) error {
	start := time.Now()
	var deleted int64
	err := store.WithinTx(cmd.Context(), func(ctx context.Context, repo repositories.GraphRepository) error {
		n, err := repo.Edges().DeleteOrphans(ctx, nil)
		deleted = n
		return err
	})
	recorder.RecordOperation("gc", time.Since(start), err)
	if err != nil {
		return err
	}
	recorder.RecordEdges(0, int(deleted))

	logger.Info("orphaned edges deleted",
		zap.Int64("edges", deleted),
		zap.Duration("elapsed", time.Since(start)),
	)
	fmt.Printf("Deleted %d orphaned edge(s)\n", deleted)
	return nil
}

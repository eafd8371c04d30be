package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"github.com/viant/spatial-search/index/kd"
	"github.com/viant/spatial-search/solve"
)

const leavesVisitedMetric = "spatial_kd_query_leaves_visited"

func newStatsCommand(a *app) *cobra.Command {
	f := &sourceFlags{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Build a kd-tree over a flight file and print its shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.override(cmd, f)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			flights, err := a.readInput(ctx)
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			idx, err := kd.New(3,
				kd.WithLeafCapacity(a.cfg.LeafCapacity),
				kd.WithLogger(a.logger),
				kd.WithRegisterer(reg))
			if err != nil {
				return err
			}
			if _, err := solve.Solve(ctx, flights, idx, a.cfg.Parallelism); err != nil {
				return err
			}
			queries, leaves, err := leavesVisited(reg)
			if err != nil {
				return err
			}
			return writeStats(cmd.OutOrStdout(), idx.Stats(), a.cfg.LeafCapacity, queries, leaves)
		},
	}
	f.bindInput(cmd)
	cmd.Flags().IntVar(&f.leafCapacity, "leaf-capacity", 0, "kd-tree leaf capacity")
	cmd.Flags().IntVarP(&f.parallelism, "parallelism", "p", 0, "concurrent queries (0 means unbounded)")
	return cmd
}

// leavesVisited reads the query count and the total number of scanned leaves
// from the index histogram.
func leavesVisited(g prometheus.Gatherer) (uint64, float64, error) {
	families, err := g.Gather()
	if err != nil {
		return 0, 0, fmt.Errorf("cli: gather metrics: %w", err)
	}
	for _, mf := range families {
		if mf.GetName() != leavesVisitedMetric || mf.GetType() != dto.MetricType_HISTOGRAM {
			continue
		}
		for _, m := range mf.GetMetric() {
			h := m.GetHistogram()
			return h.GetSampleCount(), h.GetSampleSum(), nil
		}
	}
	return 0, 0, nil
}

func writeStats(w io.Writer, s kd.Stats, capacity int, queries uint64, leaves float64) error {
	mean := 0.0
	if queries > 0 {
		mean = leaves / float64(queries)
	}
	_, err := fmt.Fprintf(w,
		"size               %d\nleaf capacity      %d\nleaves             %d\ndepth              %d\nmax leaf occupancy %d\nqueries            %d\nmean leaves/query  %.2f\n",
		s.Size, capacity, s.Leaves, s.Depth, s.MaxLeafOccupancy, queries, mean)
	return err
}

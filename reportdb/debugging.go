package reportdb

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kyleponte/signaltiming/internal/logging"
)

// countedTables are the tables TableCounts reports on, in schema order.
var countedTables = []string{
	"intersections",
	"volumes",
	"analysis_runs",
	"run_summaries",
	"run_plans",
	"delay_results",
}

// TableCounts returns the row count of every counted table present in the
// database. Other tables are ignored.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	present, err := c.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(countedTables))
	for _, table := range countedTables {
		if !slices.Contains(present, table) {
			continue
		}
		var n int
		// table comes from countedTables, never from input
		if err := c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

func (c *Client) tableNames(ctx context.Context) ([]string, error) {
	rows, err := c.DB.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}
	// :memory: databases have a single connection, so rows must be closed
	// before the counts run.
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "reportdb")),
		"table_names")

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coregx/polysql"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	Columns []string
	Return  []string
	Where   string
	Order   string
	Limit   int
}

// SearchResult is the JSON payload of the search command.
type SearchResult struct {
	Table string        `json:"table"`
	Query string        `json:"query"`
	Rows  []polysql.Row `json:"rows"`
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{}
	cmd := &cobra.Command{
		Use:   "search <table> <query>",
		Short: "Run a full-text search against the configured database",
		Long: `Run a full-text search against the configured database.

The backend's native full-text index is used when the query is long enough
and the index has not failed for the current schema version; otherwise the
search falls back to LIKE matching. A query of "*" returns rows unfiltered.`,
		Example:       `  polysql search articles 'replication lag' --columns title,body --return id,title --limit 10`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), rootOpts, opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "columns to search (required)")
	cmd.Flags().StringSliceVar(&opts.Return, "return", []string{"*"}, "columns to return")
	cmd.Flags().StringVar(&opts.Where, "where", "", "additional WHERE condition")
	cmd.Flags().StringVar(&opts.Order, "order", "", "ORDER BY used when the search itself imposes none")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum number of rows (0 = no limit)")
	_ = cmd.MarkFlagRequired("columns")

	return cmd
}

func runSearch(ctx context.Context, rootOpts *RootOptions, opts *SearchOptions, table, query string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	db, err := openDB(ctx, rootOpts, f)
	if err != nil {
		return err
	}
	defer db.Close()

	qo := polysql.QueryOptions{Where: opts.Where, Order: opts.Order}
	if opts.Limit > 0 {
		qo.Limit = opts.Limit
	}

	rows, err := db.Search(ctx, opts.Return, opts.Columns, query, table, qo)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeQuery, "search failed", err)
	}
	f.VerboseLog("%d row(s)", len(rows))

	return f.Success(SearchResult{Table: table, Query: query, Rows: rows}, formatRows(rows, opts.Return))
}

// formatRows renders rows as tab separated lines with a header. Columns
// follow returnColumns unless that is "*", in which case each row's sorted
// column names are used.
func formatRows(rows []polysql.Row, returnColumns []string) string {
	if len(rows) == 0 {
		return "(no rows)"
	}
	var cols []string
	if len(returnColumns) == 0 || (len(returnColumns) == 1 && returnColumns[0] == polysql.SearchAll) {
		cols = rows[0].Columns()
	} else {
		for _, c := range returnColumns {
			c = polysql.UnescapeIdentifier(c)
			if dot := strings.LastIndex(c, "."); dot >= 0 {
				c = c[dot+1:]
			}
			cols = append(cols, c)
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(cols, "\t"))
	for _, row := range rows {
		b.WriteByte('\n')
		for i, c := range cols {
			if i > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(row.String(c))
		}
	}
	return b.String()
}

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ping",
		Short:         "Check that the configured database is reachable",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			db, err := openDB(cmd.Context(), rootOpts, f)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Ping(cmd.Context()); err != nil {
				return f.Fail(ExitFailure, ErrCodeQuery, "ping failed", err)
			}
			msg := fmt.Sprintf("%s database %s is reachable", db.Kind(), db.Database())
			return f.Success(map[string]string{"dialect": db.Kind().String(), "database": db.Database()}, msg)
		},
	}
}

func openDB(ctx context.Context, rootOpts *RootOptions, f *OutputFormatter) (*polysql.DB, error) {
	cfg, err := polysql.LoadConfig(rootOpts.Config)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "load config", err)
	}

	var opts []polysql.Option
	if rootOpts.Verbose {
		handler := slog.NewTextHandler(f.ErrWriter, &slog.HandlerOptions{Level: slog.LevelDebug})
		opts = append(opts, polysql.WithLogger(polysql.NewSlogAdapter(slog.New(handler))))
	}

	db, err := polysql.Open(ctx, cfg, opts...)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "open database", err)
	}
	f.VerboseLog("connected to %s database %s", db.Kind(), db.Database())
	return db, nil
}

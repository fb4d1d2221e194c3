package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowsource/internal/manifest"
	"github.com/roach88/rowsource/internal/querysql"
	"github.com/roach88/rowsource/internal/result"
	"github.com/roach88/rowsource/internal/source"
	"github.com/roach88/rowsource/internal/value"
)

// QueryOptions holds the flags shared by the query commands.
type QueryOptions struct {
	*RootOptions
	Sources SourceOptions
	Columns []string
	GroupBy []string
	Where   []string
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// withSources opens the selected sources, runs fn and closes them.
func withSources(
	cmd *cobra.Command,
	opts *QueryOptions,
	args []string,
	fn func(ctx context.Context, opened *manifest.Opened, f *OutputFormatter) error,
) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	m, err := opts.Sources.buildManifest(args)
	if err != nil {
		return f.FailWith(ErrCodeLoadFailed, ExitCommandError, "loading sources", err)
	}
	opened, err := m.Open(ctx, opts.Sources.openOptions())
	if err != nil {
		return f.FailWith(ErrCodeLoadFailed, ExitCommandError, "opening sources", err)
	}
	defer opened.Close()

	for i, member := range opened.Members {
		f.VerboseLog("source %s: %s", opened.Labels[i], member)
	}
	return fn(ctx, opened, f)
}

// ColumnsOutput is the JSON payload of the columns command.
type ColumnsOutput struct {
	Columns []string        `json:"columns"`
	Sources []SourceColumns `json:"sources"`
}

// SourceColumns lists one member's columns.
type SourceColumns struct {
	Label   string   `json:"label"`
	Source  string   `json:"source"`
	Columns []string `json:"columns"`
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "columns [files...]",
		Short: "List the columns of the sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(cmd, opts, args, runColumns)
		},
	}
	addSourceFlags(cmd, &opts.Sources)
	return cmd
}

func runColumns(ctx context.Context, opened *manifest.Opened, f *OutputFormatter) error {
	cols, err := opened.Source.Columns(ctx)
	if err != nil {
		return f.Fail("reading columns", err)
	}

	out := ColumnsOutput{Columns: cols}
	for i, member := range opened.Members {
		mc, err := member.Columns(ctx)
		if err != nil {
			return f.Fail("reading columns", err)
		}
		out.Sources = append(out.Sources, SourceColumns{
			Label:   opened.Labels[i],
			Source:  member.String(),
			Columns: mc,
		})
	}

	return f.Success(out, func(w io.Writer) {
		for _, c := range cols {
			fmt.Fprintln(w, c)
		}
	})
}

// DistinctOutput is the JSON payload of the distinct command.
type DistinctOutput struct {
	Columns []string       `json:"columns"`
	Values  []result.Tuple `json:"values"`
}

// NewDistinctCommand creates the distinct command.
func NewDistinctCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "distinct --column c [--column c2] [files...]",
		Short: "List the distinct value tuples of columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(cmd, opts, args, func(ctx context.Context, opened *manifest.Opened, f *OutputFormatter) error {
				filter, err := parseWhere(opts.Where)
				if err != nil {
					return f.FailWith(ErrCodeBadArgument, ExitCommandError, "parsing --where", err)
				}
				set, err := opened.Source.Distinct(ctx, opts.Columns, filter)
				if err != nil {
					return f.Fail("distinct", err)
				}

				tuples := set.Tuples()
				return f.Success(DistinctOutput{Columns: opts.Columns, Values: tuples}, func(w io.Writer) {
					fmt.Fprintln(w, strings.Join(opts.Columns, "\t"))
					for _, t := range tuples {
						fmt.Fprintln(w, joinValues(t))
					}
				})
			})
		},
	}
	addSourceFlags(cmd, &opts.Sources)
	cmd.Flags().StringArrayVarP(&opts.Columns, "column", "c", nil, "column to project (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "filter column=value[,value...] (repeatable)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

// AggregateOutput is the JSON payload of the sum and count commands.
// Value is set for ungrouped results, Groups otherwise.
type AggregateOutput struct {
	Column  string       `json:"column,omitempty"`
	GroupBy []string     `json:"group_by,omitempty"`
	Value   value.Value  `json:"value,omitempty"`
	Groups  []GroupValue `json:"groups,omitempty"`
}

// GroupValue is one group of an aggregate.
type GroupValue struct {
	Key   result.Tuple `json:"key"`
	Value value.Value  `json:"value"`
}

// NewSumCommand creates the sum command.
func NewSumCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}
	var column string

	cmd := &cobra.Command{
		Use:   "sum --column c [--group-by g]... [files...]",
		Short: "Total a column as exact decimals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(cmd, opts, args, func(ctx context.Context, opened *manifest.Opened, f *OutputFormatter) error {
				filter, err := parseWhere(opts.Where)
				if err != nil {
					return f.FailWith(ErrCodeBadArgument, ExitCommandError, "parsing --where", err)
				}
				res, err := opened.Source.Sum(ctx, column, opts.GroupBy, filter)
				if err != nil {
					return f.Fail("sum", err)
				}
				return writeAggregate(f, AggregateOutput{Column: column, GroupBy: opts.GroupBy}, res)
			})
		},
	}
	addSourceFlags(cmd, &opts.Sources)
	cmd.Flags().StringVarP(&column, "column", "c", "", "column to total")
	cmd.Flags().StringArrayVarP(&opts.GroupBy, "group-by", "g", nil, "group by column (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "filter column=value[,value...] (repeatable)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count [--group-by g]... [files...]",
		Short: "Count rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(cmd, opts, args, func(ctx context.Context, opened *manifest.Opened, f *OutputFormatter) error {
				filter, err := parseWhere(opts.Where)
				if err != nil {
					return f.FailWith(ErrCodeBadArgument, ExitCommandError, "parsing --where", err)
				}
				res, err := opened.Source.Count(ctx, opts.GroupBy, filter)
				if err != nil {
					return f.Fail("count", err)
				}
				return writeAggregate(f, AggregateOutput{GroupBy: opts.GroupBy}, res)
			})
		},
	}
	addSourceFlags(cmd, &opts.Sources)
	cmd.Flags().StringArrayVarP(&opts.GroupBy, "group-by", "g", nil, "group by column (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "filter column=value[,value...] (repeatable)")
	return cmd
}

func writeAggregate(f *OutputFormatter, out AggregateOutput, res result.Result) error {
	switch r := res.(type) {
	case result.Scalar:
		out.Value = r.Value
		return f.Success(out, func(w io.Writer) {
			fmt.Fprintln(w, cellText(r.Value))
		})
	case *result.Mapping:
		out.Groups = []GroupValue{}
		for _, e := range r.Entries() {
			out.Groups = append(out.Groups, GroupValue{Key: e.Key, Value: e.Value})
		}
		return f.Success(out, func(w io.Writer) {
			fmt.Fprintln(w, strings.Join(append(r.KeyNames(), "value"), "\t"))
			for _, g := range out.Groups {
				fmt.Fprintf(w, "%s\t%s\n", joinValues(g.Key), cellText(g.Value))
			}
		})
	default:
		return f.FailWith(ErrCodeGeneric, ExitFailure, fmt.Sprintf("unexpected result %T", res), nil)
	}
}

// IndexOutput is the JSON payload of the index command.
type IndexOutput struct {
	Indexes []CreatedIndex `json:"indexes"`
}

// CreatedIndex names an index and the source it was built on.
type CreatedIndex struct {
	Source string `json:"source"`
	Name   string `json:"name"`
}

// tabled is implemented by table-backed sources.
type tabled interface {
	Table() string
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "index --column c [--column c2] [files...]",
		Short: "Create an index on every source that has the columns",
		Long: `Create an index on every source that has all the given columns.

Indexes persist only for sqlite manifest entries; CSV and Parquet data
is reloaded on every run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(cmd, opts, args, func(ctx context.Context, opened *manifest.Opened, f *OutputFormatter) error {
				created, err := createIndexes(ctx, opened, opts.Columns)
				if err != nil {
					return f.Fail("index", err)
				}
				return f.Success(IndexOutput{Indexes: created}, func(w io.Writer) {
					for _, ix := range created {
						fmt.Fprintf(w, "created %s on %s\n", ix.Name, ix.Source)
					}
				})
			})
		},
	}
	addSourceFlags(cmd, &opts.Sources)
	cmd.Flags().StringArrayVarP(&opts.Columns, "column", "c", nil, "column to index (repeatable)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func createIndexes(ctx context.Context, opened *manifest.Opened, columns []string) ([]CreatedIndex, error) {
	if err := source.AssertColumns(ctx, opened.Source, columns...); err != nil {
		return nil, err
	}

	created := []CreatedIndex{}
	for _, member := range opened.Members {
		ix, ok := member.(source.Indexer)
		if !ok {
			continue
		}
		if source.AssertColumns(ctx, member, columns...) != nil {
			continue
		}
		if err := ix.CreateIndex(ctx, columns...); err != nil {
			return nil, err
		}
		name := ""
		if t, ok := member.(tabled); ok {
			name = querysql.IndexName(t.Table(), columns)
		}
		created = append(created, CreatedIndex{Source: member.String(), Name: name})
	}
	return created, nil
}

func joinValues(t result.Tuple) string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = cellText(v)
	}
	return strings.Join(parts, "\t")
}

// cellText renders v for text output. NULL is spelled out so it cannot be
// mistaken for the empty string.
func cellText(v value.Value) string {
	if value.IsNull(v) {
		return "NULL"
	}
	return v.String()
}

package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vegasq/prefcat/expr"
	"github.com/vegasq/prefcat/query"
)

// exprFlags select how a single expression is resolved
type exprFlags struct {
	value       bool
	rowsGrouped bool
	colsGrouped bool
}

func (e *exprFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&e.value, "value", false, "compile an integer expression instead of a predicate")
	f.BoolVar(&e.rowsGrouped, "rows-grouped", false, "row is bound to a group (btl only)")
	f.BoolVar(&e.colsGrouped, "cols-grouped", false, "col is bound to a group (btl only)")
}

func newCompileCmd(g *globals) *cobra.Command {
	var e exprFlags
	cmd := &cobra.Command{
		Use:   "compile <expr>",
		Short: "print the operations an expression compiles to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := g.catalogue()
			if err != nil {
				return err
			}
			ctx := cat.Context(g.mode, e.rowsGrouped, e.colsGrouped)
			compile := expr.CompilePredicate
			if e.value {
				compile = expr.CompileValue
			}
			prog, err := compile(args[0], ctx)
			if err != nil {
				return explain(err, cat)
			}
			fmt.Fprint(cmd.OutOrStdout(), prog)
			return nil
		},
	}
	e.register(cmd)
	return cmd
}

func newSQLCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql <expr>",
		Short: "print the store predicate a filter expression is rendered as",
		Long: `sql renders a filter expression as a predicate over the ballot store's
columns. Filters that read pi(), any(), all(), row or col cannot be
rendered and are evaluated ballot by ballot instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := g.catalogue()
			if err != nil {
				return err
			}
			ctx := cat.Context(g.mode, false, false)
			root, err := expr.Parse(args[0])
			if err != nil {
				return err
			}
			if err := expr.Validate(root, ctx); err != nil {
				return explain(err, cat)
			}
			if root.Type != expr.TypeBool {
				return &expr.Error{Kind: expr.ErrType, Pos: root.Pos, Msg: "filter must be boolean, got " + root.Type.String()}
			}
			// unknown names are only reported by the compiler
			if _, err := expr.Compile(ctx, root); err != nil {
				return explain(err, cat)
			}

			sql, ok := expr.ToSQL(root, ctx, expr.Layout{Entities: ctx.NumEntities()})
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "not convertible: the filter runs in the engine")
				return nil
			}
			if _, err := query.Parse(sql); err != nil {
				return fmt.Errorf("store rejected %q: %w", sql, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}
	return cmd
}

func newNamesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "list the names expressions may use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := g.catalogue()
			if err != nil {
				return err
			}
			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"name", "kind", "number", "group"})
			tw.SetAutoFormatHeaders(false)
			for _, n := range cat.Names(g.mode) {
				tw.Append([]string{n.Name, string(n.Kind), strconv.Itoa(n.Number), n.Group})
			}
			tw.SetCaption(true, fmt.Sprintf("%s, %s: %d entities", cat.Name, g.mode, cat.NumEntities(g.mode)))
			tw.Render()
			return nil
		},
	}
}

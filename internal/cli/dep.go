package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tasktree/internal/model"
)

// NewDepCommand creates the dep command group. Items are addressed as
// list:item so dependencies can cross lists.
func NewDepCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage blocking dependencies between items",
	}
	cmd.AddCommand(
		newDepAddCommand(opts),
		newDepRmCommand(opts),
		newDepBlockingCommand(opts),
		newDepShowCommand(opts),
	)
	return cmd
}

// parseRefs parses positional list:item arguments. Malformed refs are
// command errors.
func parseRefs(args []string) ([]model.ItemRef, error) {
	refs := make([]model.ItemRef, len(args))
	for i, a := range args {
		ref, err := model.ParseItemRef(a)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid item reference", err)
		}
		refs[i] = ref
	}
	return refs, nil
}

func newDepAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "add <dependent> <target>",
		Short:   "Make dependent wait for target",
		Example: `  tasktree dep add web:deploy api:release`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args)
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session) error {
				dep, err := s.engine.AddItemDependency(s.ctx, refs[0], refs[1])
				if err != nil {
					return err
				}
				return s.out.Emit(dep, func(w io.Writer) {
					fmt.Fprintf(w, "%s now depends on %s\n", dep.Dependent, dep.Target)
				})
			})
		},
	}
}

func newDepRmCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <dependent> <target>",
		Short: "Remove a dependency (succeeds if absent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args)
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session) error {
				removed, err := s.engine.RemoveItemDependency(s.ctx, refs[0], refs[1])
				if err != nil {
					return err
				}
				data := map[string]bool{"removed": removed}
				return s.out.Emit(data, func(w io.Writer) {
					if removed {
						fmt.Fprintf(w, "removed %s -> %s\n", refs[0], refs[1])
					} else {
						fmt.Fprintf(w, "no dependency %s -> %s\n", refs[0], refs[1])
					}
				})
			})
		},
	}
}

func newDepBlockingCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "blocking <ref>",
		Short: "List incomplete items that block ref",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args)
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session) error {
				items, err := s.engine.ListBlocking(s.ctx, refs[0])
				if err != nil {
					return err
				}
				data := map[string]any{"item": refs[0], "blocked": len(items) > 0, "blocking": items}
				return s.out.Emit(data, func(w io.Writer) { printRefs(w, "blocking "+refs[0].String(), items) })
			})
		},
	}
}

func newDepShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show an item's dependency targets and dependents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args)
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session) error {
				deps, err := s.engine.ListDependencies(s.ctx, refs[0])
				if err != nil {
					return err
				}
				return s.out.Emit(deps, func(w io.Writer) {
					fmt.Fprintln(w, deps.Item)
					printRefs(w, "depends on", deps.Targets)
					printRefs(w, "depended on by", deps.Dependents)
				})
			})
		},
	}
}

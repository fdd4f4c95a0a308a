package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tasktree/internal/model"
)

// NewListCommand creates the list command group.
func NewListCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Create, inspect, relate, and delete lists",
	}
	cmd.AddCommand(
		newListCreateCommand(opts),
		newListGetCommand(opts),
		newListLsCommand(opts),
		newListDeleteCommand(opts),
		newListRelateCommand(opts),
		newListUnrelateCommand(opts),
		newListRelationsCommand(opts),
		newListProgressCommand(opts),
		newListNextCommand(opts),
	)
	return cmd
}

func newListCreateCommand(opts *RootOptions) *cobra.Command {
	var title, listType string
	cmd := &cobra.Command{
		Use:   "create <key>",
		Short: "Create a list",
		Example: `  tasktree list create proj --title "Website relaunch" --type hierarchical
  tasktree list create chores`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				l, err := s.engine.CreateList(s.ctx, args[0], title, model.ListType(listType))
				if err != nil {
					return err
				}
				return s.out.Emit(l, func(w io.Writer) { printList(w, l) })
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "list title (defaults to the key)")
	cmd.Flags().StringVar(&listType, "type", "", "list type (sequential|parallel|hierarchical or any tag)")
	return cmd
}

func newListGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Show a list and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				l, err := s.engine.GetList(s.ctx, args[0])
				if err != nil {
					return err
				}
				items, err := s.engine.ListItems(s.ctx, args[0])
				if err != nil {
					return err
				}
				data := struct {
					model.TodoList
					Items []model.TodoItem `json:"items"`
				}{l, items}
				return s.out.Emit(data, func(w io.Writer) {
					printList(w, l)
					printTree(w, items)
				})
			})
		},
	}
}

func newListLsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				lists, err := s.engine.ListLists(s.ctx)
				if err != nil {
					return err
				}
				return s.out.Emit(lists, func(w io.Writer) {
					if len(lists) == 0 {
						fmt.Fprintln(w, "(no lists)")
					}
					for _, l := range lists {
						printList(w, l)
					}
				})
			})
		},
	}
}

func newListDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a list with its items, relations, and dependencies",
		Long: `Delete a list with its items, relations, and dependencies.

Fails with EXTERNAL_REFERENCE while items in other lists depend on this
list's items. History entries are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				if err := s.engine.DeleteList(s.ctx, args[0]); err != nil {
					return err
				}
				data := map[string]string{"deleted": args[0]}
				return s.out.Emit(data, func(w io.Writer) { fmt.Fprintf(w, "deleted list %s\n", args[0]) })
			})
		},
	}
}

func newListRelateCommand(opts *RootOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "relate <from> <to>",
		Short: "Relate two lists (default kind: project)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				rel, err := s.engine.RelateLists(s.ctx, args[0], args[1], model.RelationKind(kind))
				if err != nil {
					return err
				}
				return s.out.Emit(rel, func(w io.Writer) { printRelation(w, rel) })
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "relation kind")
	return cmd
}

func newListUnrelateCommand(opts *RootOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "unrelate <from> <to>",
		Short: "Remove a relation between two lists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				removed, err := s.engine.UnrelateLists(s.ctx, args[0], args[1], model.RelationKind(kind))
				if err != nil {
					return err
				}
				data := map[string]bool{"removed": removed}
				return s.out.Emit(data, func(w io.Writer) {
					if removed {
						fmt.Fprintf(w, "removed relation %s -> %s\n", args[0], args[1])
					} else {
						fmt.Fprintf(w, "no relation %s -> %s\n", args[0], args[1])
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "relation kind")
	return cmd
}

func newListRelationsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relations <key>",
		Short: "Show relations a list takes part in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				rels, err := s.engine.ListRelations(s.ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Emit(rels, func(w io.Writer) {
					if len(rels) == 0 {
						fmt.Fprintln(w, "(no relations)")
					}
					for _, r := range rels {
						printRelation(w, r)
					}
				})
			})
		},
	}
}

func newListProgressCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <key>",
		Short: "Summarize item statuses in a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				p, err := s.engine.Progress(s.ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Emit(p, func(w io.Writer) { printProgress(w, p) })
			})
		},
	}
}

func newListNextCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next <key>",
		Short: "Show the next pending item that is not blocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				it, err := s.engine.NextPending(s.ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Emit(it, func(w io.Writer) { printItem(w, it) })
			})
		},
	}
}

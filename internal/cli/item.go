package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tasktree/internal/engine"
	"github.com/roach88/tasktree/internal/model"
)

// NewItemCommand creates the item command group.
func NewItemCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Add, update, reorder, move, and delete items",
	}
	cmd.AddCommand(
		newItemAddCommand(opts),
		newItemGetCommand(opts),
		newItemLsCommand(opts),
		newItemStatusCommand(opts),
		newItemDeleteCommand(opts),
		newItemReorderCommand(opts),
		newItemMoveCommand(opts),
	)
	return cmd
}

func newItemAddCommand(opts *RootOptions) *cobra.Command {
	var (
		title, parent string
		position      int
	)
	cmd := &cobra.Command{
		Use:   "add <list> <key>",
		Short: "Add an item to a list",
		Example: `  tasktree item add proj design --title "Design review"
  tasktree item add proj mockups --parent design --position 1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.NewItem{Key: args[1], Title: title, ParentKey: parent}
			if cmd.Flags().Changed("position") {
				in.Position = &position
			}
			return opts.withSession(cmd, func(s *session) error {
				it, err := s.engine.AddItem(s.ctx, args[0], in)
				if err != nil {
					return err
				}
				return s.out.Emit(it, func(w io.Writer) { printItem(w, it) })
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "item title (defaults to the key)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent item key in the same list")
	cmd.Flags().IntVar(&position, "position", 0, "1-based position among siblings (default: append)")
	return cmd
}

func newItemGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <list> <key>",
		Short: "Show an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				it, err := s.engine.GetItem(s.ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return s.out.Emit(it, func(w io.Writer) { printItem(w, it) })
			})
		},
	}
}

func newItemLsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <list>",
		Short: "List a list's items depth-first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				items, err := s.engine.ListItems(s.ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Emit(items, func(w io.Writer) { printTree(w, items) })
			})
		},
	}
}

func newItemStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <list> <key> <status>",
		Short: "Change an item's status",
		Long: `Change an item's status.

Status is one of pending, in_progress (or in-progress), completed, failed,
blocked. Moving to in_progress or completed fails with
DEPENDENCY_NOT_SATISFIED while a dependency is incomplete. Parent items are
updated to reflect their children.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				status, err := model.ParseStatus(args[2])
				if err != nil {
					return err
				}
				it, err := s.engine.UpdateItemStatus(s.ctx, args[0], args[1], status)
				if err != nil {
					return err
				}
				return s.out.Emit(it, func(w io.Writer) { printItem(w, it) })
			})
		},
	}
}

func newItemDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list> <key>",
		Short: "Delete an item and its descendants",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				keys, err := s.engine.DeleteItem(s.ctx, args[0], args[1])
				if err != nil {
					return err
				}
				data := map[string]any{"list": args[0], "deleted": keys}
				return s.out.Emit(data, func(w io.Writer) {
					fmt.Fprintf(w, "deleted %d item(s) from %s: %v\n", len(keys), args[0], keys)
				})
			})
		},
	}
}

func newItemReorderCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <list> <key> <position>",
		Short: "Move an item to a new position among its siblings",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "position must be an integer", err)
			}
			return opts.withSession(cmd, func(s *session) error {
				it, err := s.engine.ReorderItem(s.ctx, args[0], args[1], position)
				if err != nil {
					return err
				}
				return s.out.Emit(it, func(w io.Writer) { printItem(w, it) })
			})
		},
	}
}

func newItemMoveCommand(opts *RootOptions) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "move <list> <key>",
		Short: "Re-parent an item (omit --parent to make it a root item)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				it, err := s.engine.MoveItem(s.ctx, args[0], args[1], parent)
				if err != nil {
					return err
				}
				return s.out.Emit(it, func(w io.Writer) { printItem(w, it) })
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "new parent item key")
	return cmd
}

package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tasktree/internal/model"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var (
		q       model.HistoryQuery
		action  string
		subject string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit trail, oldest first",
		Example: `  tasktree history --list proj
  tasktree history --list proj --subject list
  tasktree history --list proj --item design --action status_changed
  tasktree history --limit 20 --offset 40`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Action = model.Action(action)
			q.Subject = model.SubjectKind(subject)
			return opts.withSession(cmd, func(s *session) error {
				page, err := s.engine.History(s.ctx, q)
				if err != nil {
					return err
				}
				return s.out.Emit(page, func(w io.Writer) { printHistory(w, page) })
			})
		},
	}
	cmd.Flags().StringVar(&q.ListKey, "list", "", "only entries for this list and its items")
	cmd.Flags().StringVar(&q.ItemKey, "item", "", "only entries for this item (requires --list)")
	cmd.Flags().StringVar(&subject, "subject", "", "only list or item entries (list|item)")
	cmd.Flags().StringVar(&action, "action", "", "only entries with this action")
	cmd.Flags().IntVar(&q.Limit, "limit", model.DefaultHistoryLimit, "page size")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "entries to skip")
	return cmd
}

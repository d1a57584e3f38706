package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Sync all accounts once and print unread counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, db, err := buildCoordinator()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := c.Restore(ctx); err != nil {
				return err
			}
			snap := c.SyncNow(ctx)

			if jsonFlag {
				return printJSON(toJSONSnapshot(snap))
			}

			if len(snap.Accounts) == 0 {
				fmt.Println("No accounts configured. Run 'mailpeek account add' to add one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tUNREAD\tLAST SUCCESS\tSTATE")
			for _, st := range snap.Accounts {
				last := "never"
				if !st.LastSuccess.IsZero() {
					last = st.LastSuccess.Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", st.Email, st.UnreadCount, last, statusLabel(st))
			}
			fmt.Fprintf(w, "TOTAL\t%d\t\t\n", snap.TotalUnread())
			return w.Flush()
		},
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailpeek/internal/domain"
	"github.com/lu-zhengda/mailpeek/internal/store/sqlite"
	"github.com/lu-zhengda/mailpeek/internal/sync"
)

// buildCoordinator assembles the sync coordinator from config: vault backend,
// Gmail client, account registry, and cadence. The caller owns closing the
// returned database.
func buildCoordinator() (*sync.Coordinator, *sqlite.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := newGmailClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := newTokenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	interval, err := cfg.SyncInterval()
	if err != nil {
		return nil, nil, err
	}
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	return sync.New(tokens, client, db, interval), db, nil
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the sync loop and print each snapshot",
		Long: "Syncs all accounts on the configured cadence and prints every " +
			"published snapshot. Send SIGUSR1 to trigger an immediate sync, " +
			"the way a tray or status bar would on becoming visible.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, db, err := buildCoordinator()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := c.Restore(ctx); err != nil {
				return err
			}
			c.AddObserver(func(snap domain.Snapshot) {
				printSnapshot(os.Stdout, snap)
			})

			wake := make(chan os.Signal, 1)
			signal.Notify(wake, syscall.SIGUSR1)
			defer signal.Stop(wake)
			go func() {
				for range wake {
					c.NotifyBecameVisible()
				}
			}()

			if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

// printSnapshot renders one snapshot to w, as JSON when --json is set.
func printSnapshot(w *os.File, snap domain.Snapshot) {
	if jsonFlag {
		fprintJSON(w, toJSONSnapshot(snap))
		return
	}
	fmt.Fprintf(w, "[%s] %d unread across %d accounts\n",
		snap.GeneratedAt.Format("15:04:05"), snap.TotalUnread(), len(snap.Accounts))
	for _, st := range snap.Accounts {
		fmt.Fprintf(w, "  %-30s %4d  %s\n", st.Email, st.UnreadCount, statusLabel(st))
	}
}

func statusLabel(st domain.AccountStatus) string {
	switch {
	case st.AuthExpired:
		return "re-authorization required"
	case st.Err != "":
		return "error: " + st.Err
	default:
		return "ok"
	}
}

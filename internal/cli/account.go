package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage mail accounts",
	}
	cmd.AddCommand(newAccountAddCmd())
	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountRemoveCmd())
	return cmd
}

func newAccountAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Add a Gmail account via OAuth",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newGmailClient(cfg)
			if err != nil {
				return err
			}
			tokens, err := newTokenStore(cfg)
			if err != nil {
				return err
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if !jsonFlag {
				fmt.Println("Starting Gmail OAuth flow...")
			}
			email, ts, err := client.Authorize(ctx)
			if err != nil {
				return fmt.Errorf("failed to authorize account: %w", err)
			}

			// The canonical address doubles as the account ID, so
			// re-authorizing an existing account overwrites its vault slot
			// instead of creating a duplicate.
			if err := tokens.Store(email, ts); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			if _, err := db.GetAccount(ctx, email); err != nil {
				account := &domain.Account{
					ID:          email,
					Email:       email,
					Provider:    "gmail",
					DisplayName: email,
					IsActive:    true,
					CreatedAt:   time.Now(),
				}
				if err := db.CreateAccount(ctx, account); err != nil {
					return fmt.Errorf("failed to register account: %w", err)
				}
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "add", Email: email})
			}
			fmt.Printf("Account added: %s\n", email)
			return nil
		},
	}
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			accounts, err := db.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONAccounts(accounts))
			}

			if len(accounts) == 0 {
				fmt.Println("No accounts configured. Run 'mailpeek account add' to add one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tPROVIDER\tACTIVE\tCREATED")
			for _, a := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
					a.Email,
					a.Provider,
					a.IsActive,
					a.CreatedAt.Format(time.DateOnly),
				)
			}
			return w.Flush()
		},
	}
}

func newAccountRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [email]",
		Short: "Remove an account and its stored credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tokens, err := newTokenStore(cfg)
			if err != nil {
				return err
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			accounts, err := db.ListAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			var target *domain.Account
			for i := range accounts {
				if accounts[i].Email == email || accounts[i].ID == email {
					target = &accounts[i]
					break
				}
			}
			if target == nil {
				return fmt.Errorf("account not found: %s", email)
			}

			if err := db.DeleteAccount(ctx, target.ID); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}
			if err := tokens.Remove(target.ID); err != nil {
				// Non-fatal: the slot may already be gone.
				fmt.Fprintf(os.Stderr, "Warning: could not remove stored token: %v\n", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "remove", Email: target.Email})
			}
			fmt.Printf("Account removed: %s\n", target.Email)
			return nil
		},
	}
}

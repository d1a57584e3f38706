package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailpeek/internal/config"
	"github.com/lu-zhengda/mailpeek/internal/provider/gmail"
	"github.com/lu-zhengda/mailpeek/internal/store/sqlite"
	"github.com/lu-zhengda/mailpeek/internal/vault"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mailpeek",
		Short:   "Unread mail notifier for multiple accounts",
		Long:    "Keeps per-account unread counts fresh in the background and on demand.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if shell, _ := cmd.Flags().GetString("generate-completion"); shell != "" {
				switch shell {
				case "bash":
					return cmd.Root().GenBashCompletion(os.Stdout)
				case "zsh":
					return cmd.Root().GenZshCompletion(os.Stdout)
				case "fish":
					return cmd.Root().GenFishCompletion(os.Stdout, true)
				default:
					return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", shell)
				}
			}
			return cmd.Help()
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("mailpeek %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().String("generate-completion", "", "Generate shell completion (bash, zsh, fish)")
	root.Flags().MarkHidden("generate-completion")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.AddCommand(newAccountCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newStatusCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// openDB creates the data directory and opens the SQLite account registry.
func openDB() (*sqlite.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "mailpeek.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadConfig loads the application configuration from the config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newGmailClient builds a Gmail client using the first available credential
// source: config file, then environment variables.
func newGmailClient(cfg *config.Config) (*gmail.Client, error) {
	clientID, clientSecret := cfg.Gmail.ClientID, cfg.Gmail.ClientSecret
	if clientID == "" || clientSecret == "" {
		clientID = os.Getenv("GMAIL_CLIENT_ID")
		clientSecret = os.Getenv("GMAIL_CLIENT_SECRET")
	}

	c := gmail.NewClient(clientID, clientSecret)
	if err := c.EnsureCredentials(); err != nil {
		return nil, err
	}
	return c, nil
}

// newTokenStore opens the vault backend selected in the config. A vault that
// cannot be opened at all is fatal here; per-account blob failures later are
// handled per account.
func newTokenStore(cfg *config.Config) (vault.TokenStore, error) {
	switch cfg.Vault.Backend {
	case "file":
		return vault.NewFileVault(filepath.Join(config.DataDir(), "vault"))
	case "keyring":
		return vault.NewKeyringStore(), nil
	default:
		return nil, fmt.Errorf("unknown vault backend %q (use \"file\" or \"keyring\")", cfg.Vault.Backend)
	}
}

package gmail

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

// No credentials are embedded in the binary. Users must supply their own
// Google Cloud OAuth credentials via one of:
//   - Config file (~/.config/mailpeek/config.toml) under [gmail]
//   - Environment variables GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET

func newOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes: []string{
			gmailapi.GmailReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
}

// HasCredentials reports whether OAuth application credentials are set.
func (c *Client) HasCredentials() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

// EnsureCredentials returns nil if OAuth credentials have been configured.
// Otherwise it returns an error with setup instructions.
func (c *Client) EnsureCredentials() error {
	if c.HasCredentials() {
		return nil
	}
	return fmt.Errorf("gmail OAuth credentials not configured; set them in ~/.config/mailpeek/config.toml under [gmail] or via GMAIL_CLIENT_ID / GMAIL_CLIENT_SECRET env vars")
}

// Authorize runs the browser OAuth2 flow and returns the canonical account
// address together with its initial token set. The token set is not persisted
// here; the caller hands it to the vault.
func (c *Client) Authorize(ctx context.Context) (string, domain.TokenSet, error) {
	tok, err := c.authenticate(ctx)
	if err != nil {
		return "", domain.TokenSet{}, fmt.Errorf("failed to authenticate gmail: %w", err)
	}

	ts := domain.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}

	email, err := c.Profile(ctx, ts.AccessToken)
	if err != nil {
		return "", domain.TokenSet{}, fmt.Errorf("failed to resolve account email: %w", err)
	}
	return email, ts, nil
}

// authenticate runs the authorization-code flow against a loopback redirect
// listener and exchanges the resulting code for a token.
func (c *Client) authenticate(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	// Work on a copy so concurrent flows don't race on RedirectURL.
	cfg := *c.oauth
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errCh <- fmt.Errorf("no code in callback: %s", r.URL.Query().Get("error"))
			fmt.Fprint(w, "Authorization failed. You can close this tab.")
			return
		}
		codeCh <- code
		fmt.Fprint(w, "Authorization successful! You can close this tab.")
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Shutdown(ctx)

	url := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("\nOpen this URL in your browser to authorize mailpeek:\n\n  %s\n\nWaiting for authorization...\n", url)

	select {
	case code := <-codeCh:
		token, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange auth code: %w", err)
		}
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

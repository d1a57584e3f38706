package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/lu-zhengda/mailpeek/internal/domain"
	"github.com/lu-zhengda/mailpeek/internal/provider"
)

const (
	userID     = "me"
	inboxLabel = "INBOX"
)

// Client performs unread-count and token queries against the Gmail API.
// It holds only the OAuth application credentials; per-account tokens are
// supplied by the caller on every call.
type Client struct {
	oauth *oauth2.Config
}

// NewClient creates a Gmail client for the given OAuth application
// credentials.
func NewClient(clientID, clientSecret string) *Client {
	return &Client{oauth: newOAuthConfig(clientID, clientSecret)}
}

// FetchUnread returns the unread count of the INBOX label. The labels.get
// messagesUnread field is exact, unlike messages.list resultSizeEstimate.
func (c *Client) FetchUnread(ctx context.Context, accessToken string) (int, error) {
	srv, err := c.service(ctx, accessToken)
	if err != nil {
		return 0, err
	}
	label, err := srv.Users.Labels.Get(userID, inboxLabel).Context(ctx).Do()
	if err != nil {
		return 0, mapAPIError("failed to get INBOX label", err)
	}
	return int(label.MessagesUnread), nil
}

// Refresh exchanges the refresh token for a fresh access token. The returned
// RefreshToken is set only when Google rotated it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.TokenSet, error) {
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return domain.TokenSet{}, mapRefreshError(err)
	}

	ts := domain.TokenSet{AccessToken: tok.AccessToken, Expiry: tok.Expiry}
	// oauth2 carries the previous refresh token forward when the response
	// omits one; report rotation only when the value actually changed.
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		ts.RefreshToken = tok.RefreshToken
	}
	return ts, nil
}

// Profile returns the authenticated user's email address.
func (c *Client) Profile(ctx context.Context, accessToken string) (string, error) {
	srv, err := c.service(ctx, accessToken)
	if err != nil {
		return "", err
	}
	profile, err := srv.Users.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return "", mapAPIError("failed to get gmail profile", err)
	}
	return profile.EmailAddress, nil
}

// service builds a Gmail service bound to the given access token. The token
// source is static: expiry handling belongs to the sync layer, not here.
func (c *Client) service(ctx context.Context, accessToken string) (*gmailapi.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return srv, nil
}

// mapAPIError classifies Gmail API failures for the sync policy.
func mapAPIError(msg string, err error) error {
	wrapped := fmt.Errorf("%s: %w", msg, err)

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized:
			return &provider.Error{Kind: provider.KindUnauthorized, Err: wrapped}
		case gerr.Code == http.StatusTooManyRequests:
			return &provider.Error{Kind: provider.KindRateLimited, Err: wrapped}
		case gerr.Code >= 500:
			return &provider.Error{Kind: provider.KindNetwork, Err: wrapped}
		default:
			return &provider.Error{Kind: provider.KindMalformed, Err: wrapped}
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &provider.Error{Kind: provider.KindMalformed, Err: wrapped}
	}

	// Transport-level failures, timeouts, cancellations.
	return &provider.Error{Kind: provider.KindNetwork, Err: wrapped}
}

// mapRefreshError classifies token-endpoint failures. invalid_grant means the
// refresh token is dead and the account must be re-authorized.
func mapRefreshError(err error) error {
	wrapped := fmt.Errorf("failed to refresh token: %w", err)

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		switch {
		case rerr.ErrorCode == "invalid_grant" || status == http.StatusUnauthorized:
			return &provider.Error{Kind: provider.KindAuthExpired, Err: wrapped}
		case status == http.StatusTooManyRequests:
			return &provider.Error{Kind: provider.KindRateLimited, Err: wrapped}
		case status >= 500:
			return &provider.Error{Kind: provider.KindNetwork, Err: wrapped}
		default:
			return &provider.Error{Kind: provider.KindMalformed, Err: wrapped}
		}
	}

	return &provider.Error{Kind: provider.KindNetwork, Err: wrapped}
}

// Compile-time interface compliance check.
var _ provider.MailProvider = (*Client)(nil)

package provider

import (
	"context"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

// MailProvider performs authenticated calls against the remote mail service.
// Implementations are stateless per call: token material is supplied by the
// caller and never retained.
type MailProvider interface {
	// FetchUnread returns the number of unread messages in the account's
	// inbox. Failures carry an ErrorKind classifying how the caller should
	// react (see errors.go).
	FetchUnread(ctx context.Context, accessToken string) (int, error)

	// Refresh exchanges a refresh token for a new TokenSet. The returned
	// RefreshToken is empty when the previous one remains valid, or set when
	// the provider rotated it; a rotated value must replace the old one
	// immediately since the provider may invalidate the old token.
	Refresh(ctx context.Context, refreshToken string) (domain.TokenSet, error)

	// Profile resolves the canonical address of the authorized account.
	Profile(ctx context.Context, accessToken string) (string, error)
}

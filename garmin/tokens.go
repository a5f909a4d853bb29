package garmin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/flexingg/flexingg/models"
	"github.com/flexingg/flexingg/utils"
)

// ErrTokenRefresh signals that the stored bundle could not be refreshed. The
// caller must fail the sync run and tell the user to re-link the account; it
// must never delete the bundle or retry automatically.
var ErrTokenRefresh = errors.New("token refresh failed")

// TokenExchanger is the token-refresh half of the provider client.
type TokenExchanger interface {
	Exchange(ctx context.Context, bundle TokenBundle) (*TokenBundle, error)
}

// BundleFromAuth converts a stored credential row into the wire bundle.
func BundleFromAuth(auth *models.GarminAuth) TokenBundle {
	return TokenBundle{
		OAuthToken:            auth.OAuthToken,
		OAuthTokenSecret:      auth.OAuthTokenSecret,
		MFAToken:              auth.MFAToken,
		MFAExpiration:         auth.MFAExpiration,
		Domain:                auth.Domain,
		Scope:                 auth.Scope,
		JTI:                   auth.JTI,
		TokenType:             auth.TokenType,
		AccessToken:           auth.AccessToken,
		RefreshToken:          auth.RefreshToken,
		ExpiresIn:             auth.ExpiresIn,
		ExpiresAt:             auth.ExpiresAt,
		RefreshTokenExpiresIn: auth.RefreshTokenExpiresIn,
		RefreshTokenExpiresAt: auth.RefreshTokenExpiresAt,
	}
}

// ApplyBundle overwrites every token field on the stored row with the values
// of a freshly exchanged bundle.
func ApplyBundle(auth *models.GarminAuth, b TokenBundle) {
	auth.OAuthToken = b.OAuthToken
	auth.OAuthTokenSecret = b.OAuthTokenSecret
	auth.MFAToken = b.MFAToken
	auth.MFAExpiration = b.MFAExpiration
	auth.Domain = b.Domain
	auth.Scope = b.Scope
	auth.JTI = b.JTI
	auth.TokenType = b.TokenType
	auth.AccessToken = b.AccessToken
	auth.RefreshToken = b.RefreshToken
	auth.ExpiresIn = b.ExpiresIn
	auth.ExpiresAt = b.ExpiresAt
	auth.RefreshTokenExpiresIn = b.RefreshTokenExpiresIn
	auth.RefreshTokenExpiresAt = b.RefreshTokenExpiresAt
}

// EnsureValidTokens refreshes the bundle through the exchanger when the
// access token has expired and persists the result. The stored bundle is left
// untouched when the exchange fails.
func EnsureValidTokens(ctx context.Context, db *gorm.DB, auth *models.GarminAuth, exchanger TokenExchanger) error {
	if !auth.AccessExpired(time.Now()) {
		return nil
	}

	utils.Sugar.Infof("garmin tokens expired for user %d, refreshing", auth.UserID)

	fresh, err := exchanger.Exchange(ctx, BundleFromAuth(auth))
	if err != nil {
		utils.Sugar.Errorf("garmin token refresh failed for user %d: %v", auth.UserID, err)
		return fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}

	ApplyBundle(auth, *fresh)
	if err := db.Save(auth).Error; err != nil {
		utils.Sugar.Errorf("persisting refreshed garmin tokens failed for user %d: %v", auth.UserID, err)
		return fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}

	utils.Sugar.Infof("garmin token refresh successful for user %d", auth.UserID)
	return nil
}

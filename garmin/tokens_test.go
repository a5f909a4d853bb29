package garmin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flexingg/flexingg/models"
)

func TestEnsureValidTokensNoopWhenFresh(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	auth := createValidAuth(t, db, user.ID)

	client := &fakeClient{exchangeErr: errors.New("should not be called")}
	require.NoError(t, EnsureValidTokens(context.Background(), db, auth, client))
	require.Equal(t, 0, client.exchangeCalls)
}

func TestEnsureValidTokensRefreshesExpiredBundle(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")

	auth := models.GarminAuth{
		UserID:       user.ID,
		AccessToken:  "stale-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    ptrInt64(time.Now().Add(-time.Hour).Unix()),
	}
	require.NoError(t, db.Create(&auth).Error)

	futureExpiry := time.Now().Add(time.Hour).Unix()
	client := &fakeClient{exchangeResult: &TokenBundle{
		AccessToken:  "fresh-access",
		RefreshToken: "old-refresh",
		TokenType:    "Bearer",
		Scope:        "CONNECT_READ",
		ExpiresAt:    ptrInt64(futureExpiry),
	}}

	require.NoError(t, EnsureValidTokens(context.Background(), db, &auth, client))
	require.Equal(t, 1, client.exchangeCalls)

	var stored models.GarminAuth
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&stored).Error)
	require.Equal(t, "fresh-access", stored.AccessToken)
	require.Equal(t, "old-refresh", stored.RefreshToken)
	require.Equal(t, "Bearer", stored.TokenType)
	require.NotNil(t, stored.ExpiresAt)
	require.Equal(t, futureExpiry, *stored.ExpiresAt)
	require.False(t, stored.AccessExpired(time.Now()))
}

func TestEnsureValidTokensKeepsBundleOnFailure(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")

	auth := models.GarminAuth{
		UserID:       user.ID,
		AccessToken:  "stale-access",
		RefreshToken: "old-refresh",
	}
	require.NoError(t, db.Create(&auth).Error)

	client := &fakeClient{exchangeErr: errors.New("provider unavailable")}
	err := EnsureValidTokens(context.Background(), db, &auth, client)
	require.ErrorIs(t, err, ErrTokenRefresh)

	var stored models.GarminAuth
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&stored).Error)
	require.Equal(t, "stale-access", stored.AccessToken)
	require.Equal(t, "old-refresh", stored.RefreshToken)
}

func TestAccessExpiredTreatsMissingExpiryAsExpired(t *testing.T) {
	auth := models.GarminAuth{}
	require.True(t, auth.AccessExpired(time.Now()))
	require.True(t, auth.RefreshExpired(time.Now()))

	auth.ExpiresAt = ptrInt64(time.Now().Add(time.Minute).Unix())
	require.False(t, auth.AccessExpired(time.Now()))

	auth.ExpiresAt = ptrInt64(time.Now().Add(-time.Minute).Unix())
	require.True(t, auth.AccessExpired(time.Now()))
}

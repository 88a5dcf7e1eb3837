package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShopLedger/internal/auth"
)

func TestUsers_RegisterAndVerify(t *testing.T) {
	users := auth.NewUsers()

	require.NoError(t, users.Register("Shopper@Example.com", "s3cretpass", auth.RoleCustomer, "u_1"))

	// Email is case-insensitive; duplicate registration rejected.
	err := users.Register("shopper@example.com", "otherpass", auth.RoleCustomer, "u_2")
	assert.ErrorIs(t, err, auth.ErrEmailExists)

	u, err := users.Verify("shopper@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "u_1", u.ID)
	assert.Equal(t, auth.RoleCustomer, u.Role)

	_, err = users.Verify("shopper@example.com", "wrongpass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = users.Verify("nobody@example.com", "s3cretpass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestTokenMaker_Roundtrip(t *testing.T) {
	tm := auth.NewTokenMaker("secret-1")

	tok, err := tm.New("u_42", auth.RoleOwner, time.Minute)
	require.NoError(t, err)

	claims, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u_42", claims.UserID)
	assert.Equal(t, auth.RoleOwner, claims.Role)
}

func TestTokenMaker_RejectsBadTokens(t *testing.T) {
	tm := auth.NewTokenMaker("secret-1")

	_, err := tm.Parse("not-a-token")
	assert.Error(t, err)

	// Signed with a different secret.
	other := auth.NewTokenMaker("secret-2")
	tok, err := other.New("u_42", auth.RoleCustomer, time.Minute)
	require.NoError(t, err)

	_, err = tm.Parse(tok)
	assert.Error(t, err)

	// Expired.
	tok, err = tm.New("u_42", auth.RoleCustomer, -time.Minute)
	require.NoError(t, err)

	_, err = tm.Parse(tok)
	assert.Error(t, err)
}

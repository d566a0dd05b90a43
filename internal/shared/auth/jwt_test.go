package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ENV", "dev")

	token, err := SignJWT(Claims{Email: "admin@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"}})
	require.NoError(t, err)

	claims, err := VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	token, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	require.NoError(t, err)

	_, err = VerifyJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "one")
	token, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"}})
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "two")
	_, err = VerifyJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = VerifyJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSecretRequiredInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := VerifyJWT("a.b.c")
	assert.ErrorIs(t, err, errMissingSecret)
}

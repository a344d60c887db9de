package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/spraylab/streetshop/internal/config"
	"github.com/spraylab/streetshop/internal/models"
)

func newTokenService(t *testing.T) *TokenService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return &TokenService{
		DB:            db,
		JWTSecret:     []byte("jwt-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}
}

func issueRefresh(t *testing.T, ts *TokenService, userID uint, role string) string {
	t.Helper()
	token, err := SignRefreshToken(userID, role, ts.RefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(ts.DB, token, userID, role))
	return token
}

func TestRotateToken(t *testing.T) {
	ts := newTokenService(t)
	old := issueRefresh(t, ts, 7, "user")

	access, refresh, claims, err := ts.RotateToken(old)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEqual(t, old, refresh)
	require.EqualValues(t, 7, claims["sub"].(float64))

	// The spent token is revoked and cannot rotate again.
	var stored models.RefreshToken
	require.NoError(t, ts.DB.Where("token = ?", old).First(&stored).Error)
	require.True(t, stored.Revoked)

	_, _, _, err = ts.RotateToken(old)
	require.Error(t, err)

	// The replacement works.
	_, _, _, err = ts.RotateToken(refresh)
	require.NoError(t, err)
}

func TestRotateTokenMissingSubject(t *testing.T) {
	ts := newTokenService(t)

	// A stored refresh token whose sub claim is absent must be refused,
	// not crash the handler.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"typ": "refresh",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(ts.RefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(ts.DB, token, 7, "user"))

	_, _, _, err = ts.RotateToken(token)
	require.ErrorContains(t, err, "subject")
}

func TestRotateTokenRejectsAccessToken(t *testing.T) {
	ts := newTokenService(t)
	access, err := SignAccessToken(7, "user", ts.RefreshSecret)
	require.NoError(t, err)

	_, _, _, err = ts.RotateToken(access)
	require.Error(t, err)
}

func TestRotateTokenUnknown(t *testing.T) {
	ts := newTokenService(t)
	// Signed correctly but never persisted.
	token, err := SignRefreshToken(7, "user", ts.RefreshSecret)
	require.NoError(t, err)

	_, _, _, err = ts.RotateToken(token)
	require.Error(t, err)
}

func middlewareContext(t *testing.T, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAutoRefreshMiddleware(t *testing.T) {
	ts := newTokenService(t)

	access, err := SignAccessToken(7, "user", ts.JWTSecret)
	require.NoError(t, err)

	var gotID uint
	next := func(c echo.Context) error {
		gotID, _ = UserID(c)
		return c.NoContent(http.StatusOK)
	}

	c, _ := middlewareContext(t, &http.Cookie{Name: "accessToken", Value: access})
	require.NoError(t, ts.AutoRefreshMiddleware(next)(c))
	require.EqualValues(t, 7, gotID)

	// No cookies at all: unauthorized.
	c, _ = middlewareContext(t)
	err = ts.AutoRefreshMiddleware(next)(c)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)

	// Valid refresh cookie alone rotates and lets the request through.
	refresh := issueRefresh(t, ts, 9, "user")
	c, rec := middlewareContext(t, &http.Cookie{Name: "refreshToken", Value: refresh})
	require.NoError(t, ts.AutoRefreshMiddleware(next)(c))
	require.EqualValues(t, 9, gotID)

	reissued := rec.Result().Cookies()
	names := make(map[string]bool, len(reissued))
	for _, ck := range reissued {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])
}

func TestAdminOnlyMiddleware(t *testing.T) {
	ts := newTokenService(t)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	userAccess, err := SignAccessToken(1, "user", ts.JWTSecret)
	require.NoError(t, err)
	c, _ := middlewareContext(t, &http.Cookie{Name: "accessToken", Value: userAccess})
	mwErr := ts.AdminOnlyMiddleware(next)(c)
	httpErr, ok := mwErr.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, httpErr.Code)

	adminAccess, err := SignAccessToken(2, "admin", ts.JWTSecret)
	require.NoError(t, err)
	c, _ = middlewareContext(t, &http.Cookie{Name: "accessToken", Value: adminAccess})
	require.NoError(t, ts.AdminOnlyMiddleware(next)(c))
}

func TestCreateCookie(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	ck := CreateCookie("accessToken", "v", "/", exp)
	require.True(t, ck.HttpOnly)
	require.True(t, ck.Secure)
	require.Equal(t, http.SameSiteLaxMode, ck.SameSite)
}

package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/sitetasks/pkg/httpcontext"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTAuth(t *testing.T) {
	secret := "shh"
	valid := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	cases := []struct {
		name   string
		header string
		status int
		user   string
	}{
		{name: "bearer", header: "Bearer " + valid, status: fasthttp.StatusOK, user: "u1"},
		{name: "raw token", header: valid, status: fasthttp.StatusOK, user: "u1"},
		{name: "missing", status: fasthttp.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc.def", status: fasthttp.StatusUnauthorized},
		{
			name:   "wrong secret",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"user_id": "u1"}),
			status: fasthttp.StatusUnauthorized,
		},
		{
			name:   "expired",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(-time.Minute).Unix()}),
			status: fasthttp.StatusUnauthorized,
		},
		{
			name:   "no user claim",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "u1"}),
			status: fasthttp.StatusUnauthorized,
		},
		{
			name:   "other algorithm",
			header: "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), jwt.MapClaims{"user_id": "u1"}),
			status: fasthttp.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			handler := JWTAuth(secret, nil)(func(ctx *fasthttp.RequestCtx) {
				seen = httpcontext.UserID(ctx)
				ctx.SetStatusCode(fasthttp.StatusOK)
			})

			var ctx fasthttp.RequestCtx
			if tc.header != "" {
				ctx.Request.Header.Set("Authorization", tc.header)
			}
			handler(&ctx)

			assert.Equal(t, tc.status, ctx.Response.StatusCode())
			assert.Equal(t, tc.user, seen)
		})
	}
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRouter(t *testing.T, tokens *Tokens) (*gin.Engine, *string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	got := new(string)
	r := gin.New()
	r.Use(Middleware(tokens, zaptest.NewLogger(t)))
	handler := func(c *gin.Context) {
		*got, _ = GetUserID(c.Request.Context())
		c.Status(http.StatusNoContent)
	}
	r.POST("/upload", handler)
	r.OPTIONS("/upload", handler)
	return r, got
}

func TestMiddlewareSetsActor(t *testing.T) {
	tokens := NewTokens("s3cret", "quadra")
	raw, err := tokens.Issue("gerente", time.Hour)
	require.NoError(t, err)
	r, got := newRouter(t, tokens)

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "gerente", *got)
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	tokens := NewTokens("s3cret", "quadra")
	raw, err := tokens.Issue("gerente", time.Hour)
	require.NoError(t, err)
	r, got := newRouter(t, tokens)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/upload?token="+raw, nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "gerente", *got)
}

func TestMiddlewareRejects(t *testing.T) {
	tokens := NewTokens("s3cret", "quadra")
	expired := NewTokens("s3cret", "quadra")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue("gerente", time.Hour)
	require.NoError(t, err)
	foreign, err := NewTokens("other", "quadra").Issue("gerente", time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewTokens("s3cret", "someone").Issue("gerente", time.Hour)
	require.NoError(t, err)

	cases := map[string]struct {
		header string
		want   string
	}{
		"missing":      {"", "missing bearer token"},
		"wrong scheme": {"Basic abc", "missing bearer token"},
		"garbage":      {"Bearer abc.def.ghi", "invalid token"},
		"expired":      {"Bearer " + old, "token expired"},
		"bad key":      {"Bearer " + foreign, "invalid token"},
		"bad issuer":   {"Bearer " + otherIssuer, "invalid token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, _ := newRouter(t, tokens)
			req := httptest.NewRequest(http.MethodPost, "/upload", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.want)
		})
	}
}

func TestMiddlewareAllowsOptions(t *testing.T) {
	r, got := newRouter(t, NewTokens("s3cret", ""))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/upload", nil))
	assert.Empty(t, *got)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestIssueRequiresSecretAndSubject(t *testing.T) {
	_, err := NewTokens("", "").Issue("x", time.Hour)
	assert.Error(t, err)
	_, err = NewTokens("k", "").Issue(" ", time.Hour)
	assert.Error(t, err)
}

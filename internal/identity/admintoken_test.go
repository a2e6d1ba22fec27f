package identity_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/identity"
	"golang.org/x/crypto/bcrypt"
)

func newTestAdminIssuer(t *testing.T) *identity.AdminTokenIssuer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return identity.NewAdminTokenIssuer(string(hash), []byte("signing-key"), "http://test", time.Hour)
}

func TestAdminTokenIssuer_Exchange(t *testing.T) {
	a := newTestAdminIssuer(t)

	tok, err := a.Exchange("hunter2")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	claims, err := a.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Role != "admin" || claims.Subject != "admin" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, err := a.Exchange("wrong"); !errors.Is(err, identity.ErrInvalidAdminSecret) {
		t.Errorf("wrong secret: expected ErrInvalidAdminSecret, got %v", err)
	}
}

func TestAdminTokenIssuer_noHashConfigured(t *testing.T) {
	a := identity.NewAdminTokenIssuer("", []byte("k"), "http://test", time.Hour)
	if _, err := a.Exchange(""); !errors.Is(err, identity.ErrInvalidAdminSecret) {
		t.Fatalf("expected ErrInvalidAdminSecret, got %v", err)
	}
}

func TestAdminTokenIssuer_Verify_otherKey(t *testing.T) {
	a := newTestAdminIssuer(t)
	tok, err := a.Exchange("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	other := identity.NewAdminTokenIssuer("", []byte("other-key"), "http://test", time.Hour)
	if _, err := other.Verify(tok); err == nil {
		t.Fatal("expected verification with a different key to fail")
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := newTestAdminIssuer(t)
	tok, err := a.Exchange("hunter2")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/admin", identity.RequireAdmin(a), func(c *gin.Context) {
		if identity.AdminClaimsFromCtx(c) == nil {
			t.Error("claims missing from context")
		}
		c.Status(http.StatusNoContent)
	})

	for _, tc := range []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer garbage", http.StatusUnauthorized},
		{"Bearer " + tok, http.StatusNoContent},
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("header %q: got %d, want %d", tc.header, w.Code, tc.want)
		}
	}
}

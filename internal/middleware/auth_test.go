package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"packliste/internal/auth"
)

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokens("test-secret")
	valid, err := tokens.Issue("user-1", "test@example.com")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var gotUserID string
	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = auth.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotUserID = ""
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/api/lists", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusOK && gotUserID != "user-1" {
				t.Errorf("user id = %q, want user-1", gotUserID)
			}
		})
	}
}

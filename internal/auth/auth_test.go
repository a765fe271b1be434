package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	Initialize("test-secret", true)

	token, err := GenerateToken("clerk")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	subject, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if subject != "clerk" {
		t.Errorf("Expected subject clerk, got %q", subject)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	Initialize("secret-a", true)
	token, err := GenerateToken("clerk")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	Initialize("secret-b", true)
	if _, err := ValidateToken(token); err == nil {
		t.Error("Expected validation to fail with a different secret")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	Initialize("test-secret", true)
	if _, err := ValidateToken("not.a.jwt"); err == nil {
		t.Error("Expected error for malformed token")
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	Initialize("", false)

	called := false
	handler := Middleware(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("POST", "/api/chat", nil))

	if !called {
		t.Error("Disabled auth must pass requests through")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestMiddleware_Enabled(t *testing.T) {
	Initialize("test-secret", true)
	token, err := GenerateToken("clerk")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"malformed token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSubject string
			handler := Middleware(func(w http.ResponseWriter, r *http.Request) {
				gotSubject = SubjectFromRequest(r)
			})

			req := httptest.NewRequest("POST", "/api/chat", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotSubject != "clerk" {
				t.Errorf("Subject = %q, want clerk", gotSubject)
			}
		})
	}
}

func TestMiddleware_CookieToken(t *testing.T) {
	Initialize("test-secret", true)
	token, err := GenerateToken("clerk")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	handler := Middleware(func(w http.ResponseWriter, r *http.Request) {})
	req := httptest.NewRequest("POST", "/api/chat", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected cookie auth to succeed, got %d", rec.Code)
	}
}

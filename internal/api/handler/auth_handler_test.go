package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/personar/profile-service/internal/core/domain"
	"github.com/personar/profile-service/internal/core/ports"
)

func signupBody(handle string, vectors string) string {
	return `{"email":"alice@example.com","handle":"` + handle + `","password":"secret1","display_name":"Alice","face_vectors":` + vectors + `}`
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	e := newEcho()
	stub := &stubProfileService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.PublicProfile, error) {
			if in.Email != "alice@example.com" || in.Handle != "alice" || in.Password != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if len(in.Embeddings) != domain.EmbeddingSetSize || len(in.Embeddings[0]) != domain.EmbeddingDimensions {
				t.Fatalf("unexpected embeddings shape")
			}
			return aliceProfile, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/signup", signupBody("alice", vectorsJSON(3, 128)))
	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["handle"] != "alice" || resp["link"] != aliceProfile.Link {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, leaked := resp["credential_hash"]; leaked {
		t.Fatalf("credential leaked in response")
	}
}

func TestAuthHandler_Signup_Validation(t *testing.T) {
	e := newEcho()
	stub := &stubProfileService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.PublicProfile, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	cases := map[string]string{
		"two vectors":    signupBody("alice", vectorsJSON(2, 128)),
		"short vector":   signupBody("alice", vectorsJSON(3, 64)),
		"bad handle":     signupBody("a!", vectorsJSON(3, 128)),
		"missing email":  `{"handle":"alice","password":"secret1","face_vectors":` + vectorsJSON(3, 128) + `}`,
		"short password": `{"email":"alice@example.com","handle":"alice","password":"x","face_vectors":` + vectorsJSON(3, 128) + `}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := jsonContext(e, http.MethodPost, "/signup", body)
			err := h.Signup(c)
			if code := httpCode(err); code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d (%v)", code, err)
			}
		})
	}
}

func TestAuthHandler_Signup_InvalidPayload(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubProfileService{})

	c, _ := jsonContext(e, http.MethodPost, "/signup", "not-json")
	if code := httpCode(h.Signup(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Signup_Conflict(t *testing.T) {
	e := newEcho()
	stub := &stubProfileService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.PublicProfile, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	h := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/signup", signupBody("alice", vectorsJSON(3, 128)))
	err := h.Signup(c)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler should leave the response to the error handler")
	}
}

func TestAuthHandler_SignupExternal(t *testing.T) {
	e := newEcho()
	stub := &stubProfileService{
		signupExternalFn: func(ctx context.Context, in ports.ExternalSignupInput) (*domain.PublicProfile, error) {
			if in.Assertion != "v4.local.abc" || in.Handle != "alice" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return aliceProfile, nil
		},
	}
	h := NewAuthHandler(stub)

	body := `{"assertion":"v4.local.abc","handle":"alice","face_vectors":` + vectorsJSON(3, 128) + `}`
	c, rec := jsonContext(e, http.MethodPost, "/signup/external", body)
	if err := h.SignupExternal(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestAuthHandler_Login_JSON(t *testing.T) {
	e := newEcho()
	stub := &stubProfileService{
		loginFn: func(ctx context.Context, email, password string) (string, error) {
			if email != "alice@example.com" || password != "secret1" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "token123", nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/login", `{"email":"alice@example.com","password":"secret1"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.AccessToken != "token123" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected token payload: %+v", resp)
	}
}

func TestAuthHandler_Login_Form(t *testing.T) {
	e := newEcho()
	var gotEmail string
	stub := &stubProfileService{
		loginFn: func(ctx context.Context, email, password string) (string, error) {
			gotEmail = email
			return "token123", nil
		},
	}
	h := NewAuthHandler(stub)

	form := url.Values{"username": {"alice@example.com"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if gotEmail != "alice@example.com" {
		t.Fatalf("form username not mapped to email, got %q", gotEmail)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubProfileService{
		loginFn: func(ctx context.Context, email, password string) (string, error) {
			return "", domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub)

	c, _ := jsonContext(e, http.MethodPost, "/login", `{"email":"alice@example.com","password":"bad"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubProfileService{})

	c, _ := jsonContext(e, http.MethodPost, "/login", "{")
	if code := httpCode(h.Login(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_LoginExternal(t *testing.T) {
	e := newEcho()
	stub := &stubProfileService{
		loginExternalFn: func(ctx context.Context, assertion string) (string, error) {
			if assertion != "v4.local.abc" {
				return "", domain.ErrInvalidToken
			}
			return "token456", nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/login/external", `{"assertion":"v4.local.abc"}`)
	if err := h.LoginExternal(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "token456") {
		t.Fatalf("token missing from body: %s", rec.Body.String())
	}

	c, _ = jsonContext(e, http.MethodPost, "/login/external", `{}`)
	if code := httpCode(h.LoginExternal(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing assertion, got %d", code)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/personar/profile-service/internal/core/domain"
	"github.com/personar/profile-service/internal/core/ports"
)

// stubProfileService lets each test override only the use cases it drives.
type stubProfileService struct {
	signupFn         func(ctx context.Context, in ports.SignupInput) (*domain.PublicProfile, error)
	signupExternalFn func(ctx context.Context, in ports.ExternalSignupInput) (*domain.PublicProfile, error)
	loginFn          func(ctx context.Context, email, password string) (string, error)
	loginExternalFn  func(ctx context.Context, assertion string) (string, error)
	meFn             func(ctx context.Context, email string) (*domain.PublicProfile, error)
	updateFn         func(ctx context.Context, email string, patch domain.ProfilePatch) (*domain.PublicProfile, error)
	reEnrollFn       func(ctx context.Context, email string, set domain.EmbeddingSet) (*domain.PublicProfile, error)
	byHandleFn       func(ctx context.Context, handle string) (*domain.PublicProfile, error)
	byVectorFn       func(ctx context.Context, v domain.Vector) (*domain.VectorMatch, error)
}

func (s *stubProfileService) Signup(ctx context.Context, in ports.SignupInput) (*domain.PublicProfile, error) {
	return s.signupFn(ctx, in)
}

func (s *stubProfileService) SignupExternal(ctx context.Context, in ports.ExternalSignupInput) (*domain.PublicProfile, error) {
	return s.signupExternalFn(ctx, in)
}

func (s *stubProfileService) Login(ctx context.Context, email, password string) (string, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubProfileService) LoginExternal(ctx context.Context, assertion string) (string, error) {
	return s.loginExternalFn(ctx, assertion)
}

func (s *stubProfileService) Me(ctx context.Context, email string) (*domain.PublicProfile, error) {
	return s.meFn(ctx, email)
}

func (s *stubProfileService) UpdateProfile(ctx context.Context, email string, patch domain.ProfilePatch) (*domain.PublicProfile, error) {
	return s.updateFn(ctx, email, patch)
}

func (s *stubProfileService) ReEnroll(ctx context.Context, email string, set domain.EmbeddingSet) (*domain.PublicProfile, error) {
	return s.reEnrollFn(ctx, email, set)
}

func (s *stubProfileService) LookupByHandle(ctx context.Context, handle string) (*domain.PublicProfile, error) {
	return s.byHandleFn(ctx, handle)
}

func (s *stubProfileService) LookupByVector(ctx context.Context, v domain.Vector) (*domain.VectorMatch, error) {
	return s.byVectorFn(ctx, v)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func vectorsJSON(n, dim int) string {
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = make([]float32, dim)
		rows[i][i%dim] = 1
	}
	b, _ := json.Marshal(rows)
	return string(b)
}

func httpCode(err error) int {
	he, ok := err.(*echo.HTTPError)
	if !ok {
		return 0
	}
	return he.Code
}

var aliceProfile = &domain.PublicProfile{
	ID:          "u-1",
	Email:       "alice@example.com",
	Handle:      "alice",
	DisplayName: "Alice",
	Link:        "https://personar.example/alice",
}

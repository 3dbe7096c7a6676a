package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/hiring/internal/domain"
	"github.com/sumire/hiring/internal/repository"
)

type authFixture struct {
	svc   *AuthService
	users *repository.MemoryUserRepository
	now   time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{users: repository.NewMemoryUserRepository(), now: testNow}
	f.svc = NewAuthService(f.users, AuthConfig{JWTSecret: "test-secret"}, WithClock(func() time.Time { return f.now }))
	return f
}

func (f *authFixture) pairFor(t *testing.T, user domain.User) *TokenPair {
	t.Helper()
	pair, err := f.svc.TokenPairFor(user)
	if err != nil {
		t.Fatalf("TokenPairFor: %v", err)
	}
	return pair
}

func TestAccessTokenCarriesRoleAndStaff(t *testing.T) {
	f := newAuthFixture(t)
	user := domain.User{ID: uuid.New(), Role: domain.RoleHR, VerifiedStaff: true}

	actor, err := f.svc.ValidateToken(f.pairFor(t, user).AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	want := domain.Actor{ID: user.ID, Role: domain.RoleHR, VerifiedStaff: true}
	if actor != want {
		t.Fatalf("expected %+v, got %+v", want, actor)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	f := newAuthFixture(t)
	user := domain.User{ID: uuid.New(), Role: domain.RoleCandidate}
	f.users.Put(user)
	pair := f.pairFor(t, user)

	_, err := f.svc.ValidateToken(pair.RefreshToken)
	assertKind(t, err, domain.KindUnauthorized)

	_, err = f.svc.RefreshAccessToken(context.Background(), pair.AccessToken)
	assertKind(t, err, domain.KindUnauthorized)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	user := domain.User{ID: uuid.New(), Role: domain.RoleRecruiter}
	f.users.Put(user)
	pair := f.pairFor(t, user)

	f.now = testNow.Add(accessTokenTTL + time.Minute)
	_, err := f.svc.ValidateToken(pair.AccessToken)
	assertKind(t, err, domain.KindUnauthorized)

	fresh, err := f.svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}
	if _, err := f.svc.ValidateToken(fresh.AccessToken); err != nil {
		t.Fatalf("ValidateToken after refresh: %v", err)
	}

	f.now = testNow.Add(refreshTokenTTL + time.Minute)
	_, err = f.svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	assertKind(t, err, domain.KindUnauthorized)
}

func TestInvalidTokensRejected(t *testing.T) {
	f := newAuthFixture(t)
	other := NewAuthService(f.users, AuthConfig{JWTSecret: "another-secret"}, WithClock(func() time.Time { return testNow }))
	foreign, err := other.TokenPairFor(domain.User{ID: uuid.New(), Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("TokenPairFor: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"unknown role", f.pairFor(t, domain.User{ID: uuid.New(), Role: "janitor"}).AccessToken},
		{"missing role", f.pairFor(t, domain.User{ID: uuid.New()}).AccessToken},
		{"wrong secret", foreign.AccessToken},
		{"garbage", "not-a-token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ValidateToken(tt.token)
			assertKind(t, err, domain.KindUnauthorized)
		})
	}
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	f := newAuthFixture(t)
	user := domain.User{ID: uuid.New(), Role: domain.RoleCandidate}
	f.users.Put(user)
	pair := f.pairFor(t, user)

	user.Role = domain.RoleRecruiter
	user.VerifiedStaff = true
	f.users.Put(user)

	fresh, err := f.svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}
	actor, err := f.svc.ValidateToken(fresh.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if actor.Role != domain.RoleRecruiter || !actor.VerifiedStaff {
		t.Fatalf("expected promoted actor, got %+v", actor)
	}

	gone := f.pairFor(t, domain.User{ID: uuid.New(), Role: domain.RoleCandidate})
	_, err = f.svc.RefreshAccessToken(context.Background(), gone.RefreshToken)
	assertKind(t, err, domain.KindUnauthorized)
}

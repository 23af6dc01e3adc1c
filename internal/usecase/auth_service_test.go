package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/iolowookere217/xdulist/config"
	"github.com/iolowookere217/xdulist/internal/domain"
	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

type mockUserRepo struct {
	users map[string]*domain.User
	next  int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*domain.User{}}
}

func (r *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		r.next++
		user.ID = fmt.Sprintf("user-%d", r.next)
	}
	r.users[user.ID] = user
	return nil
}

func (r *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) FindByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	for _, u := range r.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) Update(_ context.Context, user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

type mockSubscriptionRepo struct {
	subs map[string]*domain.Subscription
}

func newMockSubscriptionRepo() *mockSubscriptionRepo {
	return &mockSubscriptionRepo{subs: map[string]*domain.Subscription{}}
}

func (r *mockSubscriptionRepo) Create(_ context.Context, sub *domain.Subscription) error {
	if sub.ID == "" {
		sub.ID = "sub-" + sub.UserID
	}
	r.subs[sub.UserID] = sub
	return nil
}

func (r *mockSubscriptionRepo) FindByUserID(_ context.Context, userID string) (*domain.Subscription, error) {
	if s, ok := r.subs[userID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockSubscriptionRepo) Update(_ context.Context, sub *domain.Subscription) error {
	r.subs[sub.UserID] = sub
	return nil
}

// mockRefreshRepo emulates the store's uniqueness and delete-exactly-once
// semantics so rotation races behave like they do against postgres.
type mockRefreshRepo struct {
	mu     sync.Mutex
	next   int
	tokens map[string]*domain.RefreshToken // by ID
}

func newMockRefreshRepo() *mockRefreshRepo {
	return &mockRefreshRepo{tokens: map[string]*domain.RefreshToken{}}
}

func (r *mockRefreshRepo) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == "" {
		r.next++
		token.ID = fmt.Sprintf("rt-%d", r.next)
	}
	r.tokens[token.ID] = token
	return nil
}

func (r *mockRefreshRepo) FindValid(_ context.Context, hash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tok := range r.tokens {
		if tok.TokenHash == hash && tok.ExpiresAt.After(time.Now()) {
			copied := *tok
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockRefreshRepo) Rotate(_ context.Context, oldID string, replacement *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[oldID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.tokens, oldID)
	r.next++
	replacement.ID = fmt.Sprintf("rt-%d", r.next)
	r.tokens[replacement.ID] = replacement
	return nil
}

func (r *mockRefreshRepo) DeleteByHash(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, tok := range r.tokens {
		if tok.TokenHash == hash {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *mockRefreshRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, tok := range r.tokens {
		if tok.ExpiresAt.Before(cutoff) {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *mockRefreshRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

type mockVerificationRepo struct {
	next   int
	tokens map[string]*domain.EmailVerification
}

func newMockVerificationRepo() *mockVerificationRepo {
	return &mockVerificationRepo{tokens: map[string]*domain.EmailVerification{}}
}

func (r *mockVerificationRepo) Create(_ context.Context, token *domain.EmailVerification) error {
	if token.ID == "" {
		r.next++
		token.ID = fmt.Sprintf("ev-%d", r.next)
	}
	r.tokens[token.ID] = token
	return nil
}

func (r *mockVerificationRepo) FindValid(_ context.Context, hash string) (*domain.EmailVerification, error) {
	for _, tok := range r.tokens {
		if tok.TokenHash == hash && tok.ExpiresAt.After(time.Now()) {
			return tok, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockVerificationRepo) DeleteByID(_ context.Context, id string) error {
	delete(r.tokens, id)
	return nil
}

func (r *mockVerificationRepo) DeleteByUserID(_ context.Context, userID string) error {
	for id, tok := range r.tokens {
		if tok.UserID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

type mockMailer struct {
	mu            sync.Mutex
	verifications int
	welcomes      int
}

func (m *mockMailer) SendVerification(_ context.Context, _, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications++
	return nil
}

func (m *mockMailer) SendWelcome(_ context.Context, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes++
	return nil
}

type authFixture struct {
	service       AuthService
	users         *mockUserRepo
	subscriptions *mockSubscriptionRepo
	refresh       *mockRefreshRepo
	verifications *mockVerificationRepo
	mailer        *mockMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cfg := &config.Config{
		AppEnv:          "local",
		FrontendURL:     "http://localhost:3000",
		JWTSecret:       "test-secret",
		JWTIssuer:       "xdulist",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      168 * time.Hour,
		VerificationTTL: time.Hour,
	}
	issuer, err := NewTokenIssuer(cfg)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	f := &authFixture{
		users:         newMockUserRepo(),
		subscriptions: newMockSubscriptionRepo(),
		refresh:       newMockRefreshRepo(),
		verifications: newMockVerificationRepo(),
		mailer:        &mockMailer{},
	}
	f.service = NewAuthService(cfg, pkglog.Nop(), f.users, f.subscriptions, f.refresh, f.verifications, f.mailer, issuer)
	return f
}

func (f *authFixture) registerVerified(t *testing.T, email, password string) *domain.User {
	t.Helper()
	ctx := context.Background()
	if _, err := f.service.Register(ctx, "t", email, password, "A B"); err != nil {
		t.Fatalf("register: %v", err)
	}
	user, err := f.users.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("user missing after register: %v", err)
	}
	user.EmailVerified = true
	return user
}

func TestRegisterCreatesFreeTierAndVerificationToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	profile, err := f.service.Register(ctx, "t", "A@B.com", "secret1", " A B ")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if profile.Email != "a@b.com" {
		t.Fatalf("email not normalized: %s", profile.Email)
	}
	if profile.Tier != domain.TierFree {
		t.Fatalf("expected free tier, got %s", profile.Tier)
	}
	if profile.EmailVerified {
		t.Fatal("new account must not be verified")
	}
	sub, err := f.subscriptions.FindByUserID(ctx, profile.ID)
	if err != nil || sub.Tier != domain.TierFree {
		t.Fatalf("free subscription missing: %v", err)
	}
	if len(f.verifications.tokens) != 1 {
		t.Fatalf("expected one verification token, got %d", len(f.verifications.tokens))
	}
	// Registration issues no session.
	if f.refresh.count() != 0 {
		t.Fatal("register must not persist refresh tokens")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	if _, err := f.service.Register(ctx, "t", "a@b.com", "secret1", "A B"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := f.service.Register(ctx, "t", "a@b.com", "secret1", "A B")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginBeforeVerification(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	if _, err := f.service.Register(ctx, "t", "a@b.com", "secret1", "A B"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := f.service.Login(ctx, "t", "a@b.com", "secret1")
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "a@b.com", "secret1")
	_, err := f.service.Login(context.Background(), "t", "a@b.com", "wrong-pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginIssuesSessionAndStoresHash(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "a@b.com", "secret1")
	ctx := context.Background()

	session, err := f.service.Login(ctx, "t", "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("session must carry both tokens")
	}
	// The store holds only the hash of the raw value.
	if _, err := f.refresh.FindValid(ctx, HashToken(session.RefreshToken)); err != nil {
		t.Fatalf("hashed refresh token not stored: %v", err)
	}
	if _, err := f.refresh.FindValid(ctx, session.RefreshToken); err == nil {
		t.Fatal("raw refresh token must not be a usable lookup key")
	}
}

func TestRefreshRotation(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "a@b.com", "secret1")
	ctx := context.Background()

	session, err := f.service.Login(ctx, "t", "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	rotated, err := f.service.Refresh(ctx, "t", session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Fatal("rotation must mint a new refresh token")
	}
	// The consumed token is gone.
	if _, err := f.service.Refresh(ctx, "t", session.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replay of rotated token must fail, got %v", err)
	}
	// The replacement works exactly once more.
	if _, err := f.service.Refresh(ctx, "t", rotated.RefreshToken); err != nil {
		t.Fatalf("replacement token should refresh: %v", err)
	}
	if _, err := f.service.Refresh(ctx, "t", rotated.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("second use of replacement must fail, got %v", err)
	}
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "a@b.com", "secret1")
	ctx := context.Background()

	session, err := f.service.Login(ctx, "t", "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Refresh(ctx, "t", session.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrInvalidRefreshToken) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning rotation, got %d", wins)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "a@b.com", "secret1")
	ctx := context.Background()

	session, err := f.service.Login(ctx, "t", "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.service.Logout(ctx, "t", session.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := f.service.Logout(ctx, "t", session.RefreshToken); err != nil {
		t.Fatalf("second logout must not error: %v", err)
	}
	if err := f.service.Logout(ctx, "t", "never-existed"); err != nil {
		t.Fatalf("revoking unknown token must not error: %v", err)
	}
	if _, err := f.service.Refresh(ctx, "t", session.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh after logout must fail, got %v", err)
	}
}

func TestVerifyEmailIssuesSessionAndConsumesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	if _, err := f.service.Register(ctx, "t", "a@b.com", "secret1", "A B"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Recover the raw token the way the email link would carry it: the mock
	// cannot, so mint it from a known raw by replacing the stored record.
	raw, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	for _, rec := range f.verifications.tokens {
		rec.TokenHash = HashToken(raw)
	}

	session, err := f.service.VerifyEmail(ctx, "t", raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !session.User.EmailVerified {
		t.Fatal("user must be verified")
	}
	if session.AccessToken == "" {
		t.Fatal("verification must auto-issue a session")
	}
	if _, err := f.service.VerifyEmail(ctx, "t", raw); !errors.Is(err, ErrInvalidVerification) {
		t.Fatalf("verification token must be single-use, got %v", err)
	}
	// Login now works.
	if _, err := f.service.Login(ctx, "t", "a@b.com", "secret1"); err != nil {
		t.Fatalf("login after verification: %v", err)
	}
}

func TestResendVerificationInvalidatesOldTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	if _, err := f.service.Register(ctx, "t", "a@b.com", "secret1", "A B"); err != nil {
		t.Fatalf("register: %v", err)
	}
	raw, _ := NewOpaqueToken()
	for _, rec := range f.verifications.tokens {
		rec.TokenHash = HashToken(raw)
	}

	if err := f.service.ResendVerification(ctx, "t", "a@b.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if _, err := f.service.VerifyEmail(ctx, "t", raw); !errors.Is(err, ErrInvalidVerification) {
		t.Fatalf("old verification token must be dead after resend, got %v", err)
	}
	if len(f.verifications.tokens) != 1 {
		t.Fatalf("expected exactly one live verification token, got %d", len(f.verifications.tokens))
	}
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	f := newAuthFixture(t)
	f.registerVerified(t, "a@b.com", "secret1")
	err := f.service.ResendVerification(context.Background(), "t", "a@b.com")
	if !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestPasswordHashNeverStoredInClear(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	if _, err := f.service.Register(ctx, "t", "a@b.com", "secret1", "A B"); err != nil {
		t.Fatalf("register: %v", err)
	}
	user, err := f.users.FindByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.PasswordHash == "secret1" {
		t.Fatal("password stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")); err != nil {
		t.Fatalf("stored hash must verify the password: %v", err)
	}
}

func TestGoogleAuthCreatesVerifiedUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, err := f.service.GoogleAuth(ctx, "t", GoogleProfile{
		GoogleID: "g-123",
		Email:    "A@B.com",
		FullName: "A B",
		Avatar:   "https://img.example/a.png",
	})
	if err != nil {
		t.Fatalf("google auth: %v", err)
	}
	user, err := f.users.FindByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("user missing: %v", err)
	}
	if !user.EmailVerified {
		t.Fatal("google accounts arrive verified")
	}
	if user.GoogleID == nil || *user.GoogleID != "g-123" {
		t.Fatal("google id not stored")
	}
	if user.PasswordHash != "" {
		t.Fatal("google-only account must have no password hash")
	}
	sub, err := f.subscriptions.FindByUserID(ctx, user.ID)
	if err != nil || sub.Tier != domain.TierFree {
		t.Fatalf("free subscription missing: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("expected a full session")
	}
	if f.refresh.count() != 1 {
		t.Fatalf("expected 1 stored refresh record, got %d", f.refresh.count())
	}
}

func TestGoogleAuthLinksExistingPasswordAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.registerVerified(t, "a@b.com", "secret1")
	user.EmailVerified = false // never clicked the link

	session, err := f.service.GoogleAuth(ctx, "t", GoogleProfile{GoogleID: "g-123", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("google auth: %v", err)
	}
	linked, _ := f.users.FindByEmail(ctx, "a@b.com")
	if linked.GoogleID == nil || *linked.GoogleID != "g-123" {
		t.Fatal("account not linked")
	}
	if !linked.EmailVerified {
		t.Fatal("linking marks the email verified")
	}
	if linked.PasswordHash == "" {
		t.Fatal("linking must not erase the password")
	}
	if session.User.ID != linked.ID {
		t.Fatal("session issued for the wrong account")
	}

	// Same Google identity again finds the linked account, creates nothing.
	again, err := f.service.GoogleAuth(ctx, "t", GoogleProfile{GoogleID: "g-123", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("second google auth: %v", err)
	}
	if again.User.ID != linked.ID {
		t.Fatal("repeat sign-in resolved a different account")
	}
	if len(f.users.users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(f.users.users))
	}
}

func TestGoogleAuthRequiresIdentity(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	if _, err := f.service.GoogleAuth(ctx, "t", GoogleProfile{Email: "a@b.com"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials without a google id, got %v", err)
	}
	if _, err := f.service.GoogleAuth(ctx, "t", GoogleProfile{GoogleID: "g-123", Email: "not-an-email"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for a bad email, got %v", err)
	}
}

package tokenvault_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/tokenvault"
)

// memStore is a mutex-guarded in-memory Store with call counters, enough to
// exercise every engine flow without external infrastructure.
type memStore struct {
	mu      sync.Mutex
	records map[string]tokenvault.TokenRecord

	findCalls    int
	consumeCalls int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]tokenvault.TokenRecord)}
}

func (s *memStore) Save(_ context.Context, record tokenvault.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.Token]; ok {
		return tokenvault.ErrDuplicateToken
	}
	s.records[record.Token] = record
	return nil
}

func (s *memStore) FindActive(_ context.Context, tokenStr string, kind tokenvault.TokenKind) (tokenvault.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	rec, ok := s.records[tokenStr]
	if !ok || rec.Kind != kind || rec.Revoked {
		return tokenvault.TokenRecord{}, tokenvault.ErrTokenNotFound
	}
	return rec, nil
}

func (s *memStore) Revoke(_ context.Context, tokenStr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[tokenStr]
	if !ok {
		return tokenvault.ErrTokenNotFound
	}
	rec.Revoked = true
	s.records[tokenStr] = rec
	return nil
}

func (s *memStore) ConsumeAndDelete(_ context.Context, tokenStr string, kind tokenvault.TokenKind) (tokenvault.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumeCalls++
	rec, ok := s.records[tokenStr]
	if !ok || rec.Kind != kind || rec.Revoked {
		return tokenvault.TokenRecord{}, tokenvault.ErrTokenNotFound
	}
	delete(s.records, tokenStr)
	return rec, nil
}

func (s *memStore) RevokeAllForOwner(_ context.Context, ownerID string, kind tokenvault.TokenKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rec := range s.records {
		if rec.OwnerID == ownerID && rec.Kind == kind {
			rec.Revoked = true
			s.records[key] = rec
		}
	}
	return nil
}

func (s *memStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for key, rec := range s.records {
		if rec.ExpiresAt.Before(now) {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memStore) lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls + s.consumeCalls
}

// memIdentity is an in-memory IdentityProvider with a single seeded user.
type memIdentity struct {
	mu       sync.Mutex
	ownerID  string
	email    string
	secret   string
	verified bool
}

func (m *memIdentity) FindByCredentials(_ context.Context, identifier, secret string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identifier != m.email || secret != m.secret {
		return "", errors.New("no match")
	}
	return m.ownerID, nil
}

func (m *memIdentity) FindByIdentifier(_ context.Context, identifier string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identifier != m.email {
		return "", errors.New("no match")
	}
	return m.ownerID, nil
}

func (m *memIdentity) UpdateSecret(_ context.Context, ownerID, newSecret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ownerID != m.ownerID {
		return errors.New("unknown owner")
	}
	m.secret = newSecret
	return nil
}

func (m *memIdentity) MarkVerified(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ownerID != m.ownerID {
		return errors.New("unknown owner")
	}
	m.verified = true
	return nil
}

func (m *memIdentity) currentSecret() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.secret
}

func (m *memIdentity) isVerified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verified
}

// recordingSender captures delivered tokens per kind.
type recordingSender struct {
	mu   sync.Mutex
	sent map[tokenvault.TokenKind][]string
	err  error
}

func (r *recordingSender) Send(_ context.Context, _ string, kind tokenvault.TokenKind, tokenStr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.sent == nil {
		r.sent = make(map[tokenvault.TokenKind][]string)
	}
	r.sent[kind] = append(r.sent[kind], tokenStr)
	return nil
}

func (r *recordingSender) delivered(kind tokenvault.TokenKind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent[kind]...)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine   *tokenvault.Engine
	store    *memStore
	identity *memIdentity
	sender   *recordingSender
	clock    *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := tokenvault.DefaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Token.Issuer = "tokenvault-test"
	cfg.Metrics.Enabled = true

	env := &testEnv{
		store:    newMemStore(),
		identity: &memIdentity{ownerID: "user-1", email: "alice@example.com", secret: "correct-horse"},
		sender:   &recordingSender{},
		clock:    &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}

	engine, err := tokenvault.New().
		WithConfig(cfg).
		WithStore(env.store).
		WithIdentityProvider(env.identity).
		WithNotifier(env.sender).
		WithClock(env.clock.Now).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	env.engine = engine
	return env
}

func (env *testEnv) login(t *testing.T) *tokenvault.TokenPair {
	t.Helper()
	pair, err := env.engine.Login(context.Background(), "alice@example.com", "correct-horse")
	require.NoError(t, err)
	return pair
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLogin_IssuesVerifiablePair(t *testing.T) {
	env := newTestEnv(t)

	pair := env.login(t)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	payload, err := env.engine.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", payload.Subject)
	assert.Equal(t, tokenvault.KindAccess, payload.Kind)
}

func TestLogin_FailureIsUniform(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, badUser := env.engine.Login(ctx, "nobody@example.com", "correct-horse")
	_, badPass := env.engine.Login(ctx, "alice@example.com", "wrong")

	assert.ErrorIs(t, badUser, tokenvault.ErrInvalidCredentials)
	assert.ErrorIs(t, badPass, tokenvault.ErrInvalidCredentials)
	// Identical failures: the error must not reveal which input was wrong.
	assert.Equal(t, badUser.Error(), badPass.Error())
}

// ---------------------------------------------------------------------------
// Access verification
// ---------------------------------------------------------------------------

func TestVerifyAccess_NeverTouchesStore(t *testing.T) {
	env := newTestEnv(t)
	pair := env.login(t)

	before := env.store.lookups()
	_, err := env.engine.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, before, env.store.lookups())
}

func TestVerifyAccess_RejectsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	pair := env.login(t)

	before := env.store.lookups()
	_, err := env.engine.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, tokenvault.ErrWrongKind)
	// Kind rejection happens before any store involvement.
	assert.Equal(t, before, env.store.lookups())
}

func TestVerifyAccess_Expired(t *testing.T) {
	env := newTestEnv(t)
	pair := env.login(t)

	env.clock.Advance(16 * time.Minute)

	_, err := env.engine.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, tokenvault.ErrExpired)
}

func TestVerifyAccess_Garbage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.VerifyAccess("not-a-token")
	assert.ErrorIs(t, err, tokenvault.ErrMalformed)
}

// ---------------------------------------------------------------------------
// Refresh rotation
// ---------------------------------------------------------------------------

func TestRefresh_RotatesAndClosesReplayWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pair := env.login(t)

	rotated, err := env.engine.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old token was revoked by the rotation; its second use must fail.
	_, err = env.engine.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, tokenvault.ErrUnauthenticated)
	assert.ErrorIs(t, err, tokenvault.ErrRevoked)

	// The replacement still works.
	_, err = env.engine.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)

	snapshot := env.engine.MetricsSnapshot()
	assert.Equal(t, uint64(1), snapshot.Counters[tokenvault.MetricRefreshReuseDetected])
}

func TestRefresh_RejectsOtherKindsBeforeStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pair := env.login(t)

	verifyToken, err := env.engine.RequestEmailVerification(ctx, "user-1")
	require.NoError(t, err)

	before := env.store.lookups()

	_, err = env.engine.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, tokenvault.ErrUnauthenticated)
	assert.ErrorIs(t, err, tokenvault.ErrWrongKind)

	_, err = env.engine.Refresh(ctx, verifyToken)
	assert.ErrorIs(t, err, tokenvault.ErrWrongKind)

	// The kind claim is checked from the signature alone; neither attempt
	// reached the store.
	assert.Equal(t, before, env.store.lookups())
}

func TestRefresh_RejectsGarbageAndExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pair := env.login(t)

	_, err := env.engine.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, tokenvault.ErrUnauthenticated)
	assert.ErrorIs(t, err, tokenvault.ErrMalformed)

	env.clock.Advance(31 * 24 * time.Hour)
	_, err = env.engine.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, tokenvault.ErrUnauthenticated)
	assert.ErrorIs(t, err, tokenvault.ErrExpired)
}

// ---------------------------------------------------------------------------
// Logout
// ---------------------------------------------------------------------------

func TestLogout_RevokesAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pair := env.login(t)

	require.NoError(t, env.engine.Logout(ctx, pair.RefreshToken))

	_, err := env.engine.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, tokenvault.ErrRevoked)

	// Logging out again, or with junk, still succeeds.
	assert.NoError(t, env.engine.Logout(ctx, pair.RefreshToken))
	assert.NoError(t, env.engine.Logout(ctx, "garbage"))
	assert.NoError(t, env.engine.Logout(ctx, pair.AccessToken))
}

func TestLogoutAll_RevokesEverySession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.login(t)
	second := env.login(t)

	require.NoError(t, env.engine.LogoutAll(ctx, "user-1"))

	_, err := env.engine.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, tokenvault.ErrRevoked)
	_, err = env.engine.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, tokenvault.ErrRevoked)

	// Access tokens stay valid until they expire on their own.
	_, err = env.engine.VerifyAccess(first.AccessToken)
	assert.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Password reset
// ---------------------------------------------------------------------------

func TestPasswordReset_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.login(t)

	resetToken, err := env.engine.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{resetToken}, env.sender.delivered(tokenvault.KindResetPassword))

	require.NoError(t, env.engine.ConfirmPasswordReset(ctx, resetToken, "new-secret"))
	assert.Equal(t, "new-secret", env.identity.currentSecret())

	// All refresh sessions were force-closed by the reset.
	_, err = env.engine.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, tokenvault.ErrRevoked)

	// The new credential logs in.
	_, err = env.engine.Login(ctx, "alice@example.com", "new-secret")
	assert.NoError(t, err)
}

func TestPasswordReset_TokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resetToken, err := env.engine.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, env.engine.ConfirmPasswordReset(ctx, resetToken, "first"))

	err = env.engine.ConfirmPasswordReset(ctx, resetToken, "second")
	assert.ErrorIs(t, err, tokenvault.ErrTokenConsumed)
	assert.Equal(t, "first", env.identity.currentSecret())
}

func TestPasswordReset_UnknownIdentifier(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, tokenvault.ErrOwnerNotFound)
	assert.Empty(t, env.sender.delivered(tokenvault.KindResetPassword))
}

func TestPasswordReset_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resetToken, err := env.engine.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	env.clock.Advance(11 * time.Minute)

	err = env.engine.ConfirmPasswordReset(ctx, resetToken, "new-secret")
	assert.ErrorIs(t, err, tokenvault.ErrExpired)
	assert.Equal(t, "correct-horse", env.identity.currentSecret())
}

func TestPasswordReset_RejectsOtherKinds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pair := env.login(t)

	err := env.engine.ConfirmPasswordReset(ctx, pair.RefreshToken, "new-secret")
	assert.ErrorIs(t, err, tokenvault.ErrWrongKind)

	verifyToken, err := env.engine.RequestEmailVerification(ctx, "user-1")
	require.NoError(t, err)
	err = env.engine.ConfirmPasswordReset(ctx, verifyToken, "new-secret")
	assert.ErrorIs(t, err, tokenvault.ErrWrongKind)
	assert.Equal(t, "correct-horse", env.identity.currentSecret())
}

func TestPasswordReset_ConcurrentConfirmSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resetToken, err := env.engine.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := env.engine.ConfirmPasswordReset(ctx, resetToken, "raced"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1)
}

// ---------------------------------------------------------------------------
// Email verification
// ---------------------------------------------------------------------------

func TestEmailVerification_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	verifyToken, err := env.engine.RequestEmailVerification(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{verifyToken}, env.sender.delivered(tokenvault.KindVerifyEmail))
	assert.False(t, env.identity.isVerified())

	ownerID, err := env.engine.ConfirmEmailVerification(ctx, verifyToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", ownerID)
	assert.True(t, env.identity.isVerified())

	// Single use: the second confirmation fails.
	_, err = env.engine.ConfirmEmailVerification(ctx, verifyToken)
	assert.ErrorIs(t, err, tokenvault.ErrTokenConsumed)
}

func TestEmailVerification_SessionsSurvive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.login(t)

	verifyToken, err := env.engine.RequestEmailVerification(ctx, "user-1")
	require.NoError(t, err)
	_, err = env.engine.ConfirmEmailVerification(ctx, verifyToken)
	require.NoError(t, err)

	// Unlike password reset, verification does not end sessions.
	_, err = env.engine.Refresh(ctx, session.RefreshToken)
	assert.NoError(t, err)
}

func TestEmailVerification_NotifyFailureDoesNotFailFlow(t *testing.T) {
	env := newTestEnv(t)
	env.sender.err = errors.New("smtp down")

	verifyToken, err := env.engine.RequestEmailVerification(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, verifyToken)

	// The token is still valid even though delivery failed.
	_, err = env.engine.ConfirmEmailVerification(context.Background(), verifyToken)
	assert.NoError(t, err)

	snapshot := env.engine.MetricsSnapshot()
	assert.Equal(t, uint64(1), snapshot.Counters[tokenvault.MetricNotifyFailure])
}

// ---------------------------------------------------------------------------
// Sweeper and metrics
// ---------------------------------------------------------------------------

func TestSweeper_DeletesExpiredRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.login(t)

	env.clock.Advance(31 * 24 * time.Hour)

	deleted, err := env.store.DeleteExpired(ctx, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestMetricsSnapshot_CountsFlows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.login(t)
	_, _ = env.engine.Login(ctx, "alice@example.com", "wrong")

	snapshot := env.engine.MetricsSnapshot()
	assert.Equal(t, uint64(1), snapshot.Counters[tokenvault.MetricLoginSuccess])
	assert.Equal(t, uint64(1), snapshot.Counters[tokenvault.MetricLoginFailure])
	assert.Equal(t, uint64(1), snapshot.Counters[tokenvault.MetricPairIssued])
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

func TestBuilder_RequiresStoreAndIdentity(t *testing.T) {
	cfg := tokenvault.DefaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	_, err := tokenvault.New().WithConfig(cfg).
		WithIdentityProvider(&memIdentity{}).Build()
	assert.Error(t, err)

	_, err = tokenvault.New().WithConfig(cfg).
		WithStore(newMemStore()).Build()
	assert.Error(t, err)
}

func TestBuilder_BuildsOnce(t *testing.T) {
	cfg := tokenvault.DefaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	b := tokenvault.New().WithConfig(cfg).
		WithStore(newMemStore()).
		WithIdentityProvider(&memIdentity{})

	engine, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	_, err = b.Build()
	assert.Error(t, err)
}

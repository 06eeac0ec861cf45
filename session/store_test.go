package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canteenhq/canteen-go/api"
	"github.com/canteenhq/canteen-go/core"
)

// fakeAuth scripts the backend for session tests and counts calls so the
// restore tests can prove which paths hit the network.
type fakeAuth struct {
	identity core.Identity
	token    string
	err      error

	loginCalls int
	meCalls    int
}

func (f *fakeAuth) AdminLogin(ctx context.Context, creds api.Credentials) (core.Identity, string, error) {
	f.loginCalls++
	return f.identity, f.token, f.err
}

func (f *fakeAuth) AdminMe(ctx context.Context) (core.Identity, error) {
	f.meCalls++
	return f.identity, f.err
}

func (f *fakeAuth) StudentLogin(ctx context.Context, req api.StudentLoginRequest) (core.Identity, string, error) {
	f.loginCalls++
	return f.identity, f.token, f.err
}

func adminIdentity() core.Identity {
	return core.Identity{ID: "u1", Name: "Chef", Role: core.RoleAdmin}
}

func TestLoginEstablishesSession(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{identity: adminIdentity(), token: "tok-1"}
	storage := core.NewMemoryStore()
	store := New(backend, storage)

	identity, err := store.Login(ctx, "chef", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.ID)
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, core.RoleAdmin, store.Role())
	assert.Equal(t, "tok-1", store.TokenSource()())

	// credential and identity persisted for the next process
	flag, _ := storage.Get(ctx, "auth:flag")
	assert.Equal(t, "true", flag)
	token, _ := storage.Get(ctx, "auth:token")
	assert.Equal(t, "tok-1", token)
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{err: errors.New("bad credentials")}
	store := New(backend, core.NewMemoryStore())
	store.Restore(ctx)

	_, err := store.Login(ctx, "chef", "wrong")
	require.Error(t, err)
	assert.Equal(t, StateAnonymous, store.State())
	assert.Empty(t, store.TokenSource()())
}

func TestLoginStudentForcesStudentRole(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{identity: core.Identity{ID: "s1", Name: "Asha"}, token: "tok-s"}
	store := New(backend, core.NewMemoryStore())

	identity, err := store.LoginStudent(ctx, "R-42", "pw")
	require.NoError(t, err)
	assert.Equal(t, core.RoleStudent, identity.Role)
	assert.Equal(t, core.RoleStudent, store.Role())
}

func TestAdoptIdentityRejectsPartial(t *testing.T) {
	ctx := context.Background()
	store := New(&fakeAuth{}, core.NewMemoryStore())

	err := store.AdoptIdentity(ctx, core.Identity{Name: "no id"}, "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingCredential)
	assert.False(t, store.IsAuthenticated())
}

func TestLogoutClearsEverythingAndFiresHookOnce(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{identity: adminIdentity(), token: "tok-1"}
	storage := core.NewMemoryStore()

	hookCalls := 0
	store := New(backend, storage, WithLogoutHook(func() { hookCalls++ }))

	_, err := store.Login(ctx, "chef", "pw")
	require.NoError(t, err)

	store.Logout(ctx)
	assert.Equal(t, StateAnonymous, store.State())
	assert.Empty(t, store.TokenSource()())
	assert.Equal(t, 1, hookCalls)

	token, _ := storage.Get(ctx, "auth:token")
	assert.Empty(t, token)

	// logging out while anonymous is a no-op; no second redirect
	store.Logout(ctx)
	assert.Equal(t, 1, hookCalls)
}

func TestHandleUnauthorizedGuardsAgainstLoops(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{identity: adminIdentity(), token: "tok-1"}

	hookCalls := 0
	store := New(backend, core.NewMemoryStore(), WithLogoutHook(func() { hookCalls++ }))

	// while anonymous, a rejected credential does nothing
	store.HandleUnauthorized()
	assert.Equal(t, 0, hookCalls)

	_, err := store.Login(ctx, "chef", "pw")
	require.NoError(t, err)

	// mid-session rejection logs out once; repeats are no-ops
	store.HandleUnauthorized()
	store.HandleUnauthorized()
	assert.Equal(t, StateAnonymous, store.State())
	assert.Equal(t, 1, hookCalls)
}

func TestRestoreFromCachedIdentitySkipsNetwork(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{identity: adminIdentity(), token: "tok-1"}
	storage := core.NewMemoryStore()

	first := New(backend, storage)
	_, err := first.Login(ctx, "chef", "pw")
	require.NoError(t, err)

	// second store over the same storage, like a process restart
	second := New(backend, storage)
	state := second.Restore(ctx)

	assert.Equal(t, StateAuthenticated, state)
	assert.Equal(t, core.RoleAdmin, second.Role())
	assert.Equal(t, "tok-1", second.TokenSource()())
	assert.Zero(t, backend.meCalls, "cached identity restores without a validation call")
}

func TestRestoreBareTokenValidatesWithBackend(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{identity: adminIdentity()}
	storage := core.NewMemoryStore()
	_ = storage.Set(ctx, "auth:token", "tok-only", 0)

	store := New(backend, storage)
	state := store.Restore(ctx)

	assert.Equal(t, StateAuthenticated, state)
	assert.Equal(t, 1, backend.meCalls)
	assert.Equal(t, "tok-only", store.TokenSource()())
}

func TestRestoreCorruptIdentityFallsBackToToken(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{identity: adminIdentity()}
	storage := core.NewMemoryStore()
	_ = storage.Set(ctx, "auth:flag", "true", 0)
	_ = storage.Set(ctx, "auth:identity", "{not json", 0)
	_ = storage.Set(ctx, "auth:token", "tok-1", 0)

	store := New(backend, storage)
	state := store.Restore(ctx)

	assert.Equal(t, StateAuthenticated, state)
	assert.Equal(t, 1, backend.meCalls, "corrupt identity forces token validation")
}

func TestRestoreWithNothingPersistedIsAnonymous(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{}
	store := New(backend, core.NewMemoryStore())

	assert.Equal(t, StateAnonymous, store.Restore(ctx))
	assert.Zero(t, backend.meCalls)
}

func TestRestoreInvalidTokenClearsPersistedState(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuth{err: errors.New("401")}
	storage := core.NewMemoryStore()
	_ = storage.Set(ctx, "auth:token", "stale", 0)

	store := New(backend, storage)
	state := store.Restore(ctx)

	assert.Equal(t, StateAnonymous, state)
	token, _ := storage.Get(ctx, "auth:token")
	assert.Empty(t, token, "a rejected token must not survive restore")
}

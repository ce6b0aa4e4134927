// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"context"
	"sync"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/protocol"
)

// fakeAuth fails with the queued errors in order, then succeeds.
type fakeAuth struct {
	mu    sync.Mutex
	errs  []error
	calls int

	// SignInFunc overrides the queue when set.
	SignInFunc func(ctx context.Context) error
}

func (a *fakeAuth) SignInAnonymously(ctx context.Context) error {
	a.mu.Lock()
	a.calls++
	fn := a.SignInFunc
	var err error
	if len(a.errs) > 0 {
		err = a.errs[0]
		a.errs = a.errs[1:]
	}
	a.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return err
}

func (a *fakeAuth) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// fakeRelay resolves codes registered in codes. JoinAllocation consumes
// joinErrs in order before looking the code up.
type fakeRelay struct {
	mu        sync.Mutex
	codes     map[string]Allocation
	joinErrs  []error
	createErr error
	codeErr   error
	nextCode  string

	createCalls int
	joinCalls   []string
	keepAlives  []string
	releases    []string
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{codes: make(map[string]Allocation), nextCode: "ab12cd"}
}

func (r *fakeRelay) CreateAllocation(ctx context.Context, maxPeers int) (Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return Allocation{}, r.createErr
	}
	return Allocation{ID: "alloc-1", Region: "test"}, nil
}

func (r *fakeRelay) GetJoinCode(ctx context.Context, allocationID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codeErr != nil {
		return "", r.codeErr
	}
	code, _ := CanonicalJoinCode(r.nextCode)
	r.codes[code] = Allocation{ID: allocationID, Region: "test"}
	return r.nextCode, nil
}

func (r *fakeRelay) JoinAllocation(ctx context.Context, code string) (Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinCalls = append(r.joinCalls, code)
	if len(r.joinErrs) > 0 {
		err := r.joinErrs[0]
		r.joinErrs = r.joinErrs[1:]
		if err != nil {
			return Allocation{}, err
		}
	}
	alloc, ok := r.codes[code]
	if !ok {
		return Allocation{}, &Error{Kind: KindNotFound}
	}
	return alloc, nil
}

func (r *fakeRelay) KeepAlive(ctx context.Context, allocationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keepAlives = append(r.keepAlives, allocationID)
	return nil
}

func (r *fakeRelay) Release(ctx context.Context, allocationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases = append(r.releases, allocationID)
	for code, alloc := range r.codes {
		if alloc.ID == allocationID {
			delete(r.codes, code)
		}
	}
	return nil
}

func (r *fakeRelay) Releases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.releases...)
}

func (r *fakeRelay) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createCalls + len(r.joinCalls)
}

func (r *fakeRelay) JoinCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.joinCalls...)
}

// fakeTransport connects immediately on Configure unless neverConnect is set.
type fakeTransport struct {
	mu             sync.Mutex
	connected      bool
	neverConnect   bool
	configureErr   error
	configureCalls []Role
	shutdownCalls  int
	rtt            time.Duration

	// onConfigure runs before Configure takes effect.
	onConfigure func()
}

func (t *fakeTransport) Configure(ctx context.Context, alloc Allocation, role Role) error {
	if t.onConfigure != nil {
		t.onConfigure()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.configureCalls = append(t.configureCalls, role)
	if t.configureErr != nil {
		return t.configureErr
	}
	if !t.neverConnect {
		t.connected = true
	}
	return nil
}

func (t *fakeTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shutdownCalls++
	t.connected = false
	return nil
}

func (t *fakeTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *fakeTransport) RoundTripTime(ctx context.Context, participant protocol.ParticipantID) (time.Duration, error) {
	return t.rtt, nil
}

func (t *fakeTransport) ConfigureCalls() []Role {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Role(nil), t.configureCalls...)
}

type fakeStore struct {
	mu      sync.Mutex
	code    JoinCode
	has     bool
	saves   int
	cleared int
}

func (s *fakeStore) Save(ctx context.Context, code JoinCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code, s.has = code, true
	s.saves++
	return nil
}

func (s *fakeStore) Load(ctx context.Context) (JoinCode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, s.has, nil
}

func (s *fakeStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code, s.has = JoinCode{}, false
	s.cleared++
	return nil
}

type fixture struct {
	auth      *fakeAuth
	relay     *fakeRelay
	transport *fakeTransport
	store     *fakeStore
	now       time.Time
	c         *Coordinator
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitBaseDelay = time.Millisecond
	cfg.AuthTimeout = 200 * time.Millisecond
	cfg.AllocationTimeout = 200 * time.Millisecond
	cfg.VerifyTimeout = 200 * time.Millisecond
	cfg.JoinBaseDelay = time.Millisecond
	cfg.QuiesceTimeout = 50 * time.Millisecond
	cfg.ConnectTimeout = 100 * time.Millisecond
	cfg.ConnectPollInterval = time.Millisecond
	return cfg
}

func newFixture() *fixture {
	f := &fixture{
		auth:      &fakeAuth{},
		relay:     newFakeRelay(),
		transport: &fakeTransport{},
		store:     &fakeStore{},
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.c = NewCoordinator(fastConfig(), Dependencies{
		Auth:      f.auth,
		Relay:     f.relay,
		Transport: f.transport,
		Store:     f.store,
		Now:       func() time.Time { return f.now },
	})
	return f
}

// ready returns a fixture already initialised.
func ready(t interface{ Fatalf(string, ...interface{}) }) *fixture {
	f := newFixture()
	if err := f.c.Initialise(context.Background()); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}
	return f
}

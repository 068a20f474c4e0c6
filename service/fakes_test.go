package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
	"github.com/nbd-wtf/go-nostr"
)

type fakeCredentialStore struct {
	mu      sync.Mutex
	cred    *core.Credential
	loadErr error
	loads   int
	clears  int
}

func (s *fakeCredentialStore) Load(ctx context.Context) (*core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *fakeCredentialStore) Save(ctx context.Context, cred core.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	return nil
}

func (s *fakeCredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.cred = nil
	return nil
}

func (s *fakeCredentialStore) stored() *core.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// fakeBackend counts calls so tests can assert no request was made
type fakeBackend struct {
	calls atomic.Int32

	verify  func(ctx context.Context, evt nostr.Event) (*core.AuthResult, error)
	session func(ctx context.Context, token string) (*core.Admin, error)
	status  func(ctx context.Context) (*core.InstanceStatus, error)
	logout  func(ctx context.Context, token string) error
}

func (b *fakeBackend) VerifyAuth(ctx context.Context, evt nostr.Event) (*core.AuthResult, error) {
	b.calls.Add(1)
	return b.verify(ctx, evt)
}

func (b *fakeBackend) ValidateSession(ctx context.Context, token string) (*core.Admin, error) {
	b.calls.Add(1)
	return b.session(ctx, token)
}

func (b *fakeBackend) InstanceStatus(ctx context.Context) (*core.InstanceStatus, error) {
	b.calls.Add(1)
	return b.status(ctx)
}

func (b *fakeBackend) Logout(ctx context.Context, token string) error {
	b.calls.Add(1)
	if b.logout == nil {
		return nil
	}
	return b.logout(ctx, token)
}

type recordedEvent struct {
	kind   string
	pubkey string
	isNew  bool
	reason string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) PublishLogin(ctx context.Context, pubkey string, isNew bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{kind: "login", pubkey: pubkey, isNew: isNew})
	return nil
}

func (p *fakePublisher) PublishLogout(ctx context.Context, pubkey string, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{kind: "logout", pubkey: pubkey, reason: reason})
	return nil
}

func (p *fakePublisher) recorded() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type fakeSource struct {
	signer ports.Signer
}

func (s fakeSource) Signer() (ports.Signer, bool) {
	return s.signer, s.signer != nil
}

type mapTranslator map[string]string

func (m mapTranslator) Translate(key string) (string, bool) {
	msg, ok := m[key]
	return msg, ok
}

type decryptCall struct {
	ciphertext string
	ephemeral  string
	start      time.Time
	end        time.Time
}

// recordingDecryptor records each call's window and the peak number of
// calls in flight at once.
type recordingDecryptor struct {
	delay   time.Duration
	decrypt func(ciphertext, ephemeral string) (string, error)

	active    atomic.Int32
	maxActive atomic.Int32

	mu    sync.Mutex
	calls []decryptCall
}

func (d *recordingDecryptor) Nip44Decrypt(ctx context.Context, ciphertext, ephemeral string) (string, error) {
	n := d.active.Add(1)
	for {
		peak := d.maxActive.Load()
		if n <= peak || d.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	start := time.Now()

	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	out, err := d.decrypt(ciphertext, ephemeral)

	end := time.Now()
	d.active.Add(-1)

	d.mu.Lock()
	d.calls = append(d.calls, decryptCall{ciphertext: ciphertext, ephemeral: ephemeral, start: start, end: end})
	d.mu.Unlock()
	return out, err
}

func (d *recordingDecryptor) recorded() []decryptCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]decryptCall(nil), d.calls...)
}

// gatedDecryptor blocks calls for "slow" ciphertexts until release is
// closed, ignoring cancellation like a signer prompt nobody answers. Other
// ciphertexts decrypt at once.
type gatedDecryptor struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedDecryptor() *gatedDecryptor {
	return &gatedDecryptor{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (d *gatedDecryptor) Nip44Decrypt(ctx context.Context, ciphertext, ephemeral string) (string, error) {
	if strings.HasPrefix(ciphertext, "slow") {
		d.once.Do(func() { close(d.started) })
		<-d.release
		return "stale:" + ciphertext, nil
	}
	return "fresh:" + ciphertext, nil
}

type echoDecryptor struct{}

func (echoDecryptor) Nip44Decrypt(ctx context.Context, ciphertext, ephemeral string) (string, error) {
	return ciphertext, nil
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"golang.org/x/sync/singleflight"

	"github.com/luxfi/fhepay/metrics"
)

// DefaultValidity matches the ten day window the gateway accepts.
const DefaultValidity = 10 * 24 * time.Hour

// Store persists credentials across sessions under a string key. A nil or
// empty load is not an error; it means no credential was persisted.
type Store interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, value []byte) error
}

// Signer approves a credential scope by signing its authorization digest.
// Implementations typically prompt the user's wallet and may block
// indefinitely; a declined prompt surfaces as an error.
type Signer interface {
	Address() common.Address
	SignAuthorization(ctx context.Context, digest common.Hash) ([]byte, error)
}

// Manager obtains credentials in three stages: in-memory cache, persistent
// store, fresh signature. Concurrent requests for the same scope are
// deduplicated so the user is never prompted twice for one scope.
type Manager struct {
	log      log.Logger
	store    Store
	validity time.Duration
	metrics  *metrics.CredentialMetrics
	now      func() time.Time

	mu    sync.Mutex
	cache map[ids.ID]*Credential

	sfGroup singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithValidity overrides the validity window of newly issued credentials.
func WithValidity(d time.Duration) Option {
	return func(m *Manager) { m.validity = d }
}

// WithMetrics attaches credential metrics.
func WithMetrics(cm *metrics.CredentialMetrics) Option {
	return func(m *Manager) { m.metrics = cm }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a credential manager backed by store. A nil store
// disables persistence; credentials then live only in memory.
func NewManager(logger log.Logger, store Store, opts ...Option) *Manager {
	m := &Manager{
		log:      logger,
		store:    store,
		validity: DefaultValidity,
		now:      time.Now,
		cache:    make(map[ids.ID]*Credential),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Obtain returns a credential authorizing decryption on the given contracts
// for the signer's address. A persisted, still-valid credential is reused
// before the signer is prompted. A nil credential with an error means the
// user declined or signing failed; callers must abort their decryption and
// must not retry automatically.
func (m *Manager) Obtain(
	ctx context.Context,
	contracts []common.Address,
	signer Signer,
) (*Credential, error) {
	if len(contracts) == 0 {
		return nil, ErrNoContracts
	}
	if signer == nil {
		return nil, ErrNoSigner
	}

	user := signer.Address()
	id := ScopeID(user, contracts)

	if cred := m.cached(id); cred != nil {
		m.metrics.CacheHit()
		return cred, nil
	}
	m.metrics.CacheMiss()

	v, err, _ := m.sfGroup.Do(id.String(), func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have filled
		// the cache while this one was queued.
		if cred := m.cached(id); cred != nil {
			return cred, nil
		}
		if cred := m.loadPersisted(id); cred != nil {
			m.remember(id, cred)
			return cred, nil
		}
		cred, err := m.issue(ctx, contracts, user, signer)
		if err != nil {
			return nil, err
		}
		m.persist(id, cred)
		m.remember(id, cred)
		return cred, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credential), nil
}

func (m *Manager) cached(id ids.ID) *Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred := m.cache[id]
	if cred.Valid(m.now()) {
		return cred
	}
	delete(m.cache, id)
	return nil
}

func (m *Manager) remember(id ids.ID, cred *Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[id] = cred
}

func (m *Manager) loadPersisted(id ids.ID) *Credential {
	if m.store == nil {
		return nil
	}
	raw, ok, err := m.store.Load(id.String())
	if err != nil {
		m.log.Warn("failed to load persisted credential", log.Err(err))
		return nil
	}
	if !ok {
		return nil
	}
	cred := new(Credential)
	if err := json.Unmarshal(raw, cred); err != nil {
		m.log.Warn("discarding corrupt persisted credential", log.Err(err))
		return nil
	}
	if !cred.Valid(m.now()) {
		m.log.Debug("persisted credential expired", log.Stringer("id", id))
		return nil
	}
	m.log.Debug("reusing persisted credential", log.Stringer("id", id))
	return cred
}

func (m *Manager) persist(id ids.ID, cred *Credential) {
	if m.store == nil {
		return
	}
	raw, err := json.Marshal(cred)
	if err != nil {
		m.log.Warn("failed to encode credential", log.Err(err))
		return
	}
	if err := m.store.Save(id.String(), raw); err != nil {
		m.log.Warn("failed to persist credential", log.Err(err))
	}
}

// issue generates a fresh ephemeral keypair and asks the signer to approve
// it. This is the only stage that can prompt the user.
func (m *Manager) issue(
	ctx context.Context,
	contracts []common.Address,
	user common.Address,
	signer Signer,
) (*Credential, error) {
	sk, err := bls.NewSecretKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate decryption keypair: %w", err)
	}
	pub := bls.PublicKeyToCompressedBytes(bls.PublicFromSecretKey(sk))

	issuedAt := m.now().Truncate(time.Second)
	digest := AuthorizationDigest(pub, contracts, user, issuedAt, m.validity)

	m.metrics.SignPrompt()
	sig, err := signer.SignAuthorization(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("authorization signature rejected: %w", err)
	}

	scoped := make([]common.Address, len(contracts))
	copy(scoped, contracts)

	m.log.Info(
		"issued decryption credential",
		log.Stringer("user", user),
		log.Int("contracts", len(scoped)),
		log.Duration("validity", m.validity),
	)
	return &Credential{
		SecretKey: bls.SecretKeyToBytes(sk),
		PublicKey: pub,
		Signature: sig,
		Contracts: scoped,
		User:      user,
		IssuedAt:  issuedAt,
		Validity:  m.validity,
	}, nil
}

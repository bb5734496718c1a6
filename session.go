// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fhepay is the client-side synchronization core for confidential
// salary comparison. A Session submits encrypted salaries to the on-chain
// contract, tracks the ciphertext handles the user may decrypt, performs
// authenticated decryption through the off-chain gateway, and keeps the
// local view consistent across chain reconnects, account switches, and
// transient failures.
package fhepay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/fhepay/credentials"
	"github.com/luxfi/fhepay/metrics"
	"github.com/luxfi/fhepay/utils"
)

// Op identifies a user-facing operation guarded by a busy flag. Operations
// of the same kind never overlap; operations of different kinds may.
type Op int

const (
	OpSubmit Op = iota
	OpCompare
	OpDecryptSalary
	OpDecryptComparison

	numOps
)

func (o Op) String() string {
	switch o {
	case OpSubmit:
		return "submit"
	case OpCompare:
		return "compare"
	case OpDecryptSalary:
		return "decrypt-salary"
	case OpDecryptComparison:
		return "decrypt-comparison"
	default:
		return "unknown"
	}
}

const (
	decryptMaxAttempts = 3
	decryptRetryDelay  = time.Second

	refreshNetworkRetries = 2
	refreshNetworkDelay   = 2 * time.Second
	refreshTimeoutRetries = 1
	refreshTimeoutDelay   = 3 * time.Second
)

const (
	msgNotReady      = "Contract or wallet not ready"
	msgCancelled     = "Cancelled: network or account changed"
	msgInvalidAmount = "Salary must be greater than zero"
	msgNotSubmitted  = "No salary submitted yet"
)

// SessionConfig wires a Session to its collaborators. Context, Contract,
// Encryptor, and Oracle are required; the rest are optional.
type SessionConfig struct {
	Logger           log.Logger
	Context          ContextSource
	Contract         SalaryContract
	Encryptor        InputEncryptor
	Oracle           DecryptionOracle
	Credentials      *credentials.Manager
	CredentialSigner credentials.Signer
	Metrics          *metrics.SessionMetrics
}

// Session orchestrates the salary comparison flows for one user. All methods
// are safe for concurrent use; each operation runs synchronously in its
// caller's goroutine and re-entry into a running operation kind is ignored.
type Session struct {
	log        log.Logger
	src        ContextSource
	contract   SalaryContract
	encryptor  InputEncryptor
	oracle     DecryptionOracle
	creds      *credentials.Manager
	credSigner credentials.Signer
	metrics    *metrics.SessionMetrics
	store      *Store
	coord      *coordinator

	// sleep is the retry delay primitive, replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu              sync.Mutex
	flags           [numOps]bool
	hasSalary       bool
	counterpart     common.Address
	status          string
	onStatus        func(string)
	decryptAttempts [numKinds]int
	refreshAttempts int
}

// NewSession validates the wiring and returns a ready session.
func NewSession(cfg SessionConfig) (*Session, error) {
	switch {
	case cfg.Context == nil:
		return nil, errors.New("session requires a context source")
	case cfg.Contract == nil:
		return nil, errors.New("session requires a salary contract")
	case cfg.Encryptor == nil:
		return nil, errors.New("session requires an input encryptor")
	case cfg.Oracle == nil:
		return nil, errors.New("session requires a decryption oracle")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	s := &Session{
		log:        logger,
		src:        cfg.Context,
		contract:   cfg.Contract,
		encryptor:  cfg.Encryptor,
		oracle:     cfg.Oracle,
		creds:      cfg.Credentials,
		credSigner: cfg.CredentialSigner,
		metrics:    cfg.Metrics,
		store:      NewStore(logger),
		sleep:      utils.Sleep,
	}
	s.coord = newCoordinator(s)
	s.store.SetObserver(s.coord.storeChanged)
	return s, nil
}

// Start runs the one-shot submission-status check that primes the session
// once the contract and signer are available. If the user already submitted
// a salary, the check cascades into a salary refresh.
func (s *Session) Start(ctx context.Context) error {
	return s.CheckSubmission(ctx)
}

// OnStatus registers a callback invoked with every status message change.
func (s *Session) OnStatus(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

// Status returns the current user-facing status message.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ContractAddress returns the salary contract resolved for the current
// chain, and whether one is deployed there.
func (s *Session) ContractAddress() (common.Address, bool) {
	return s.src.ContractAddress(s.src.ChainID())
}

// HasSalary reports whether the user is known to have submitted a salary.
func (s *Session) HasSalary() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSalary
}

// Counterpart returns the address used in the last comparison.
func (s *Session) Counterpart() common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counterpart
}

// SalaryHandle returns the tracked handle of the user's own salary.
func (s *Session) SalaryHandle() TrackedValue {
	return s.store.Tracked(KindSalary)
}

// ComparisonHandle returns the tracked handle of the last comparison result.
func (s *Session) ComparisonHandle() TrackedValue {
	return s.store.Tracked(KindComparison)
}

// SalaryClear returns the decrypted salary, if the tracked handle has been
// decrypted.
func (s *Session) SalaryClear() (*uint256.Int, bool) {
	if !s.store.IsDecrypted(KindSalary) {
		return nil, false
	}
	clear, ok := s.store.Clear(KindSalary)
	if !ok {
		return nil, false
	}
	return clear.Clear, true
}

// ComparisonOutcome returns the decrypted comparison result (true means the
// user earns more), if the tracked handle has been decrypted.
func (s *Session) ComparisonOutcome() (bool, bool) {
	if !s.store.IsDecrypted(KindComparison) {
		return false, false
	}
	clear, ok := s.store.Clear(KindComparison)
	if !ok {
		return false, false
	}
	return clear.Bool(), true
}

// IsSalaryDecrypted reports whether the tracked salary handle has a valid
// decryption.
func (s *Session) IsSalaryDecrypted() bool {
	return s.store.IsDecrypted(KindSalary)
}

// IsComparisonDecrypted reports whether the tracked comparison handle has a
// valid decryption.
func (s *Session) IsComparisonDecrypted() bool {
	return s.store.IsDecrypted(KindComparison)
}

// Busy reports whether an operation of the given kind is running.
func (s *Session) Busy(op Op) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[op]
}

func (s *Session) Submitting() bool           { return s.Busy(OpSubmit) }
func (s *Session) Comparing() bool            { return s.Busy(OpCompare) }
func (s *Session) DecryptingSalary() bool     { return s.Busy(OpDecryptSalary) }
func (s *Session) DecryptingComparison() bool { return s.Busy(OpDecryptComparison) }

// CanSubmit reports whether a submit operation could start now.
func (s *Session) CanSubmit() bool {
	return s.ready() && !s.Busy(OpSubmit)
}

// CanCompare reports whether a compare operation could start now.
func (s *Session) CanCompare() bool {
	return s.ready() && !s.Busy(OpCompare)
}

// CanDecryptSalary reports whether a salary decryption could start now.
func (s *Session) CanDecryptSalary() bool {
	return s.ready() &&
		!s.Busy(OpDecryptSalary) &&
		s.store.Tracked(KindSalary).Set &&
		!s.store.IsDecrypted(KindSalary)
}

// CanDecryptComparison reports whether a comparison decryption could start.
func (s *Session) CanDecryptComparison() bool {
	return s.ready() &&
		!s.Busy(OpDecryptComparison) &&
		s.store.Tracked(KindComparison).Set &&
		!s.store.IsDecrypted(KindComparison)
}

// ready reports whether the ambient context provides everything an
// operation needs: a connected signer and a deployed contract.
func (s *Session) ready() bool {
	if s.src.Signer() == (common.Address{}) {
		return false
	}
	_, deployed := s.src.ContractAddress(s.src.ChainID())
	return deployed
}

// begin transitions op from Idle to Running. It fails when the operation is
// already running; re-entry is rejected, not queued. The returned snapshot
// is the ambient context the operation must validate against.
func (s *Session) begin(op Op) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flags[op] {
		s.log.Debug("operation already running, ignoring", log.Stringer("operation", op))
		return Snapshot{}, false
	}
	s.flags[op] = true
	return Capture(s.src), true
}

// end returns op to Idle. Deferred by every operation so the busy flag is
// released on every exit path.
func (s *Session) end(op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[op] = false
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	notify := s.onStatus
	s.mu.Unlock()

	s.log.Debug("status", log.String("message", msg))
	if notify != nil {
		notify(msg)
	}
}

func (s *Session) statusf(format string, args ...interface{}) {
	s.setStatus(fmt.Sprintf(format, args...))
}

// staleAbort converts a detected ambient context change into a cancelled
// status. Results computed under a stale snapshot are discarded, never
// committed.
func (s *Session) staleAbort(snap Snapshot, op string) bool {
	if !snap.Stale(s.src) {
		return false
	}
	s.metrics.StaleAbort(op)
	s.setStatus(msgCancelled)
	return true
}

func (s *Session) setHasSalary(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasSalary = v
}

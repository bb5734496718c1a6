// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"context"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/log"

	"github.com/luxfi/fhepay/credentials"
)

var (
	testUser        = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOther       = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testContract    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testAltContract = common.HexToAddress("0x4444444444444444444444444444444444444444")

	testSalaryHandle     = HexToHandle("0x01")
	testComparisonHandle = HexToHandle("0x02")
)

const testChainID = uint64(9000)

// fakeContext is a mutable ambient context. Tests flip the signer or chain
// mid-operation to exercise staleness detection.
type fakeContext struct {
	mu        sync.Mutex
	chainID   uint64
	signer    common.Address
	contracts map[uint64]common.Address
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		chainID: testChainID,
		signer:  testUser,
		contracts: map[uint64]common.Address{
			testChainID: testContract,
		},
	}
}

func (f *fakeContext) ChainID() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID
}

func (f *fakeContext) Signer() common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signer
}

func (f *fakeContext) ContractAddress(chainID uint64) (common.Address, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addr, ok := f.contracts[chainID]
	return addr, ok
}

func (f *fakeContext) setSigner(addr common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signer = addr
}

func (f *fakeContext) setChainID(id uint64, contract common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainID = id
	f.contracts[id] = contract
}

// fakeContract scripts the on-chain collaborator with overridable functions.
// The zero value reports no submission and empty handles.
type fakeContract struct {
	mu sync.Mutex

	hasSalaryFn        func(ctx context.Context, addr common.Address) (bool, error)
	mySalaryFn         func(ctx context.Context) (Handle, error)
	submitSalaryFn     func(ctx context.Context, handle Handle, proof []byte) (*types.Receipt, error)
	compareSalariesFn  func(ctx context.Context, other common.Address) (*types.Receipt, error)
	comparisonResultFn func(ctx context.Context, a, b common.Address) (Handle, error)

	submitted    bool
	salaryHandle Handle
	submitCalls  int
	compareCalls int
}

func (f *fakeContract) HasSalary(ctx context.Context, addr common.Address) (bool, error) {
	f.mu.Lock()
	fn, submitted := f.hasSalaryFn, f.submitted
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, addr)
	}
	return submitted, nil
}

func (f *fakeContract) MySalary(ctx context.Context) (Handle, error) {
	f.mu.Lock()
	fn, handle := f.mySalaryFn, f.salaryHandle
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return handle, nil
}

func (f *fakeContract) SubmitSalary(
	ctx context.Context,
	handle Handle,
	proof []byte,
) (*types.Receipt, error) {
	f.mu.Lock()
	f.submitCalls++
	fn := f.submitSalaryFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, handle, proof)
	}
	f.mu.Lock()
	f.submitted = true
	f.salaryHandle = handle
	f.mu.Unlock()
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (f *fakeContract) CompareSalaries(
	ctx context.Context,
	other common.Address,
) (*types.Receipt, error) {
	f.mu.Lock()
	f.compareCalls++
	fn := f.compareSalariesFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, other)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (f *fakeContract) ComparisonResult(
	ctx context.Context,
	a, b common.Address,
) (Handle, error) {
	f.mu.Lock()
	fn := f.comparisonResultFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, a, b)
	}
	return testComparisonHandle, nil
}

func (f *fakeContract) setSubmitted(handle Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = true
	f.salaryHandle = handle
}

// fakeEncryptor returns scripted handles and proofs.
type fakeEncryptor struct {
	handle    Handle
	proof     []byte
	err       error
	onEncrypt func()
}

func (f *fakeEncryptor) CreateEncryptedInput(contract, user common.Address) EncryptedInput {
	return &fakeInput{enc: f}
}

type fakeInput struct {
	enc    *fakeEncryptor
	values []uint32
}

func (f *fakeInput) Add32(value uint32) EncryptedInput {
	f.values = append(f.values, value)
	return f
}

func (f *fakeInput) Encrypt(ctx context.Context) (Handle, []byte, error) {
	if f.enc.onEncrypt != nil {
		f.enc.onEncrypt()
	}
	if f.enc.err != nil {
		return EmptyHandle, nil, f.enc.err
	}
	return f.enc.handle, f.enc.proof, nil
}

// fakeOracle scripts gateway decryption and counts calls.
type fakeOracle struct {
	mu    sync.Mutex
	fn    func(requests []HandleRequest) (map[Handle]*uint256.Int, error)
	calls int
}

func (f *fakeOracle) UserDecrypt(
	_ context.Context,
	requests []HandleRequest,
	_ *credentials.Credential,
) (map[Handle]*uint256.Int, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(requests)
	}
	out := make(map[Handle]*uint256.Int, len(requests))
	for _, req := range requests {
		out[req.Handle] = uint256.NewInt(1)
	}
	return out, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCredentialSigner approves every authorization without prompting.
type fakeCredentialSigner struct {
	addr common.Address
	err  error
}

func (f *fakeCredentialSigner) Address() common.Address {
	return f.addr
}

func (f *fakeCredentialSigner) SignAuthorization(
	_ context.Context,
	digest common.Hash,
) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("sig:"), digest.Bytes()...), nil
}

// memStore is an in-memory credential store.
type memStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string][]byte)}
}

func (m *memStore) Load(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	return raw, ok, nil
}

func (m *memStore) Save(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// statusRecorder collects every status transition in order.
type statusRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *statusRecorder) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *statusRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *statusRecorder) contains(msg string) bool {
	for _, m := range r.all() {
		if m == msg {
			return true
		}
	}
	return false
}

// testHarness bundles a session with its fakes and an instant sleep.
type testHarness struct {
	session  *Session
	src      *fakeContext
	contract *fakeContract
	enc      *fakeEncryptor
	oracle   *fakeOracle
	status   *statusRecorder
}

func newTestHarness(t interface{ Fatalf(string, ...interface{}) }) *testHarness {
	src := newFakeContext()
	contract := &fakeContract{}
	enc := &fakeEncryptor{handle: testSalaryHandle, proof: []byte("proof")}
	oracle := &fakeOracle{}
	status := &statusRecorder{}

	signer := &fakeCredentialSigner{addr: testUser}
	manager := credentials.NewManager(log.NewNoOpLogger(), newMemStore())

	session, err := NewSession(SessionConfig{
		Context:          src,
		Contract:         contract,
		Encryptor:        enc,
		Oracle:           oracle,
		Credentials:      manager,
		CredentialSigner: signer,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.sleep = func(context.Context, time.Duration) error { return nil }
	session.OnStatus(status.record)

	return &testHarness{
		session:  session,
		src:      src,
		contract: contract,
		enc:      enc,
		oracle:   oracle,
		status:   status,
	}
}

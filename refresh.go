// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhepay

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/fhepay/utils"
)

const refreshOpName = "refresh"

// RefreshSalary re-reads the user's submission status and salary handle
// from the contract. Transient failures are retried with class-specific
// budgets; terminal failures reset the local salary state to a safe default.
func (s *Session) RefreshSalary(ctx context.Context) error {
	if !s.ready() {
		s.setStatus(msgNotReady)
		return ErrNotReady
	}
	return s.refreshSalary(ctx, Capture(s.src))
}

// CheckSubmission reads whether the user already submitted a salary and, if
// so, cascades into a salary refresh.
func (s *Session) CheckSubmission(ctx context.Context) error {
	if !s.ready() {
		s.setStatus(msgNotReady)
		return ErrNotReady
	}
	snap := Capture(s.src)

	submitted, err := s.contract.HasSalary(ctx, snap.Signer)
	if err != nil {
		s.setStatus("Failed to check submission status: " + err.Error())
		return err
	}
	if s.staleAbort(snap, "status-check") {
		return ErrStaleContext
	}

	s.setHasSalary(submitted)
	if !submitted {
		s.setStatus(msgNotSubmitted)
		return nil
	}
	return s.refreshSalary(ctx, snap)
}

func (s *Session) refreshSalary(ctx context.Context, snap Snapshot) error {
	submitted, err := s.contract.HasSalary(ctx, snap.Signer)
	if err != nil {
		return s.retryRefresh(ctx, snap, err)
	}
	if s.staleAbort(snap, refreshOpName) {
		return ErrStaleContext
	}

	if !submitted {
		s.setHasSalary(false)
		s.store.Reset(KindSalary)
		s.resetRefreshAttempts()
		s.setStatus(msgNotSubmitted)
		return nil
	}

	handle, err := s.contract.MySalary(ctx)
	if err != nil {
		return s.retryRefresh(ctx, snap, err)
	}
	if s.staleAbort(snap, refreshOpName) {
		return ErrStaleContext
	}

	s.setHasSalary(true)
	s.store.SetHandle(KindSalary, handle)
	s.resetRefreshAttempts()
	s.setStatus("Salary handle refreshed")
	return nil
}

// retryRefresh classifies cause and either schedules another refresh
// attempt or fails terminally. Network failures get a larger budget than
// timeouts; anything else is terminal immediately.
func (s *Session) retryRefresh(ctx context.Context, snap Snapshot, cause error) error {
	var (
		budget int
		delay  time.Duration
		class  string
	)
	switch {
	case utils.IsNetworkError(cause):
		budget, delay, class = refreshNetworkRetries, refreshNetworkDelay, "network"
	case utils.IsTimeoutError(cause):
		budget, delay, class = refreshTimeoutRetries, refreshTimeoutDelay, "timeout"
	default:
		s.terminalRefreshFailure("Failed to refresh salary: " + cause.Error())
		return cause
	}

	used := s.bumpRefreshAttempts()
	if used > budget {
		s.terminalRefreshFailure(fmt.Sprintf(
			"Failed to refresh salary after %s retries: %s", class, cause,
		))
		return cause
	}

	s.metrics.Retried(refreshOpName)
	s.statusf("Connection problem, retrying salary refresh (%d/%d)", used, budget)
	if err := s.sleep(ctx, delay); err != nil {
		s.resetRefreshAttempts()
		return err
	}
	return s.refreshSalary(ctx, snap)
}

// terminalRefreshFailure resets the local salary state to a safe default:
// no handle, no submission claim, counter zeroed.
func (s *Session) terminalRefreshFailure(msg string) {
	s.setHasSalary(false)
	s.store.Reset(KindSalary)
	s.resetRefreshAttempts()
	s.metrics.Failed(refreshOpName)
	s.setStatus(msg)
}

func (s *Session) bumpRefreshAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshAttempts++
	return s.refreshAttempts
}

func (s *Session) resetRefreshAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshAttempts = 0
}

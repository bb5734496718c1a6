// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import "strings"

// Remote collaborators do not expose a structured error taxonomy, so
// transient failures are classified by message content. This is the minimum
// required behavior, not a model to extend: prefer typed errors whenever a
// collaborator starts returning them.

var networkMarkers = []string{
	"network",
	"connection",
	"connect:",
	"refused",
	"no such host",
	"broken pipe",
	"reset by peer",
}

var timeoutMarkers = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
}

// IsNetworkError reports whether err looks like a network or connection
// failure worth retrying.
func IsNetworkError(err error) bool {
	return matchesAny(err, networkMarkers)
}

// IsTimeoutError reports whether err looks like a timeout.
func IsTimeoutError(err error) bool {
	return matchesAny(err, timeoutMarkers)
}

func matchesAny(err error, markers []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

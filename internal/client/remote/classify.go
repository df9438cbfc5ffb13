package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/avolkov/leadbook/internal/common"
	surrealdb "github.com/surrealdb/surrealdb.go"
)

// classify maps driver and transport failures onto the shared error taxonomy.
// The split matters downstream: auth and policy failures must never be
// retried blindly, while transient network failures must never trigger a
// session reset.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrAuthRequired) ||
		errors.Is(err, common.ErrNetworkTransient) ||
		errors.Is(err, common.ErrPolicyDenied) {
		return err
	}

	var permErr surrealdb.PermissionError
	if errors.As(err, &permErr) {
		return fmt.Errorf("%w: %w", common.ErrPolicyDenied, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", common.ErrNetworkTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", common.ErrNetworkTransient, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "token", "authentication", "not signed in", "signin", "invalid session"):
		return fmt.Errorf("%w: %w", common.ErrAuthRequired, err)
	case containsAny(msg, "permission", "not allowed", "forbidden"):
		return fmt.Errorf("%w: %w", common.ErrPolicyDenied, err)
	case containsAny(msg, "connection refused", "connection reset", "broken pipe",
		"websocket", "timeout", "no such host", "eof"):
		return fmt.Errorf("%w: %w", common.ErrNetworkTransient, err)
	}
	return err
}

func isTransient(err error) bool {
	return errors.Is(err, common.ErrNetworkTransient)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/common"
	"github.com/avolkov/leadbook/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryCall struct {
	sql  string
	vars map[string]any
}

type fakeConn struct {
	queries    []queryCall
	results    []any
	errs       []error
	authTokens []string
	closed     bool
}

func (f *fakeConn) Use(ns, db string) (any, error) { return nil, nil }

func (f *fakeConn) Signin(vars map[string]any) (any, error) {
	return "signed-token", nil
}

func (f *fakeConn) Authenticate(token string) (any, error) {
	f.authTokens = append(f.authTokens, token)
	return nil, nil
}

func (f *fakeConn) Query(sql string, vars map[string]any) (any, error) {
	f.queries = append(f.queries, queryCall{sql: sql, vars: vars})
	var res any
	var err error
	if len(f.results) > 0 {
		res, f.results = f.results[0], f.results[1:]
	}
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return res, err
}

func (f *fakeConn) Close() { f.closed = true }

// rawResult builds a response in the raw query envelope the driver returns.
func rawResult(rows ...any) any {
	return []any{map[string]any{"status": "OK", "time": "12µs", "result": rows}}
}

func newTestRemote(conns ...*fakeConn) (*SurrealRemote, *int) {
	r := NewSurrealRemote(Config{
		URL:          "ws://localhost:8000/rpc",
		Namespace:    "leadbook",
		Database:     "main",
		Scope:        "account",
		DialAttempts: 1,
		DialBackoff:  time.Millisecond,
	}, logging.NewNoopLogger())

	dials := 0
	r.dial = func(url string) (surrealConn, error) {
		if dials >= len(conns) {
			return nil, errors.New("connection refused")
		}
		c := conns[dials]
		dials++
		return c, nil
	}
	return r, &dials
}

func TestUpsertReturnsRemoteStamp(t *testing.T) {
	ctx := context.Background()
	modified := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	conn := &fakeConn{results: []any{rawResult(map[string]any{
		"id":          "record:abc",
		"record_id":   "abc",
		"owner_id":    "owner-1",
		"display_name": "Acme Corp",
		"payload":     map[string]any{"phone": "555-0101"},
		"modified_at": modified.UnixMicro(),
	})}}
	r, _ := newTestRemote(conn)

	rec := &models.Record{
		Id:                "abc",
		OwnerId:           "owner-1",
		DisplayName:       "Acme Corp",
		Payload:           json.RawMessage(`{"phone":"555-0101"}`),
		LastModifiedLocal: modified,
	}

	stamp, err := r.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, modified, stamp)

	require.Len(t, conn.queries, 1)
	assert.Contains(t, conn.queries[0].sql, "UPDATE type::thing")
	assert.Equal(t, "abc", conn.queries[0].vars["id"])
	assert.Equal(t, "owner-1", conn.queries[0].vars["owner_id"])
}

func TestGetNotFound(t *testing.T) {
	conn := &fakeConn{results: []any{rawResult()}}
	r, _ := newTestRemote(conn)

	_, err := r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCountByOwner(t *testing.T) {
	conn := &fakeConn{results: []any{rawResult(map[string]any{"count": 7})}}
	r, _ := newTestRemote(conn)

	n, err := r.CountByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestCountByOwnerEmpty(t *testing.T) {
	conn := &fakeConn{results: []any{rawResult()}}
	r, _ := newTestRemote(conn)

	n, err := r.CountByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFetchByOwner(t *testing.T) {
	modified := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	conn := &fakeConn{results: []any{rawResult(
		map[string]any{"record_id": "a", "owner_id": "o", "display_name": "A", "modified_at": modified.UnixMicro()},
		map[string]any{"record_id": "b", "owner_id": "o", "display_name": "B", "modified_at": modified.UnixMicro()},
	)}}
	r, _ := newTestRemote(conn)

	records, err := r.FetchByOwner(context.Background(), "o")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Id)
	assert.Equal(t, modified, records[0].LastModifiedLocal)
	require.NotNil(t, records[0].LastSyncedRemote)
	assert.True(t, records[0].Synced())
}

func TestTransientErrorDropsConnection(t *testing.T) {
	ctx := context.Background()
	first := &fakeConn{errs: []error{errors.New("websocket: close 1006 (abnormal closure)")}}
	second := &fakeConn{results: []any{rawResult()}}
	r, dials := newTestRemote(first, second)

	err := r.Ping(ctx)
	assert.ErrorIs(t, err, common.ErrNetworkTransient)
	assert.True(t, first.closed)

	require.NoError(t, r.Ping(ctx))
	assert.Equal(t, 2, *dials)
}

func TestAuthErrorKeepsConnection(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{errs: []error{errors.New("token expired"), nil}, results: []any{nil, rawResult()}}
	r, dials := newTestRemote(conn)

	err := r.Ping(ctx)
	assert.ErrorIs(t, err, common.ErrAuthRequired)
	assert.False(t, conn.closed)

	require.NoError(t, r.Ping(ctx))
	assert.Equal(t, 1, *dials)
}

func TestSignInStoresToken(t *testing.T) {
	ctx := context.Background()
	first := &fakeConn{errs: []error{errors.New("connection reset")}}
	second := &fakeConn{results: []any{rawResult()}}
	r, _ := newTestRemote(first, second)

	token, err := r.SignIn(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "signed-token", token)

	// transport failure, then reconnect must re-authenticate with the token
	require.Error(t, r.Ping(ctx))
	require.NoError(t, r.Ping(ctx))
	assert.Equal(t, []string{"signed-token"}, second.authTokens)
}

func TestAuthenticateBeforeDialDefersToConnect(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConn{results: []any{rawResult()}}
	r, dials := newTestRemote(conn)

	require.NoError(t, r.Authenticate(ctx, "cached-token"))
	assert.Equal(t, 0, *dials)

	require.NoError(t, r.Ping(ctx))
	assert.Equal(t, []string{"cached-token"}, conn.authTokens)
}

func TestDialFailureIsTransient(t *testing.T) {
	r, _ := newTestRemote() // no connections available
	err := r.Ping(context.Background())
	assert.ErrorIs(t, err, common.ErrNetworkTransient)
}

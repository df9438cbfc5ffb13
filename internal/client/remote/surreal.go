package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avolkov/leadbook/internal/client/models"
	"github.com/avolkov/leadbook/internal/common"
	"github.com/avolkov/leadbook/internal/logging"
	"github.com/sethvargo/go-retry"
	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/marshal"
)

// recordTable is the remote table holding synchronized records.
const recordTable = "record"

// Config holds the connection settings for the remote store.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8000/rpc.
	URL       string
	Namespace string
	Database  string

	// Scope is the access scope used for credential sign-in.
	Scope string

	// DialAttempts bounds connection retries; backoff between attempts
	// starts at DialBackoff and grows fibonacci-style.
	DialAttempts uint64
	DialBackoff  time.Duration
}

// surrealConn is the driver surface used by SurrealRemote, extracted so
// tests can substitute a fake.
type surrealConn interface {
	Use(ns string, db string) (any, error)
	Signin(vars map[string]any) (any, error)
	Authenticate(token string) (any, error)
	Query(sql string, vars map[string]any) (any, error)
	Close()
}

// SurrealRemote implements Remote over a SurrealDB websocket connection.
// The connection is dialed lazily on first use and dropped after transport
// failures so the next operation reconnects.
type SurrealRemote struct {
	cfg  Config
	log  logging.Logger
	dial func(url string) (surrealConn, error)

	mu    sync.Mutex
	conn  surrealConn
	token string
}

func NewSurrealRemote(cfg Config, log logging.Logger) *SurrealRemote {
	if cfg.DialAttempts == 0 {
		cfg.DialAttempts = 4
	}
	if cfg.DialBackoff == 0 {
		cfg.DialBackoff = 500 * time.Millisecond
	}
	return &SurrealRemote{
		cfg: cfg,
		log: log,
		dial: func(url string) (surrealConn, error) {
			return surrealdb.New(url)
		},
	}
}

// ensure returns a live connection, dialing with backoff when necessary.
// Callers must hold r.mu.
func (r *SurrealRemote) ensure(ctx context.Context) (surrealConn, error) {
	if r.conn != nil {
		return r.conn, nil
	}

	backoff := retry.WithMaxRetries(r.cfg.DialAttempts, retry.NewFibonacci(r.cfg.DialBackoff))
	var conn surrealConn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := r.dial(r.cfg.URL)
		if err != nil {
			r.log.Debug(ctx, "remote dial failed, retrying", "url", r.cfg.URL, "error", err)
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", common.ErrNetworkTransient, r.cfg.URL, err)
	}

	if _, err := conn.Use(r.cfg.Namespace, r.cfg.Database); err != nil {
		conn.Close()
		return nil, classify(err)
	}
	if r.token != "" {
		if _, err := conn.Authenticate(r.token); err != nil {
			conn.Close()
			return nil, classify(err)
		}
	}

	r.conn = conn
	return conn, nil
}

// dropLocked discards the connection after a transport failure so the next
// operation re-dials. Callers must hold r.mu.
func (r *SurrealRemote) dropLocked() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// query runs one statement, reconnecting lazily and classifying failures.
func (r *SurrealRemote) query(ctx context.Context, sql string, vars map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, err := r.ensure(ctx)
	if err != nil {
		return nil, err
	}

	res, err := conn.Query(sql, vars)
	if err != nil {
		err = classify(err)
		if isTransient(err) {
			r.dropLocked()
		}
		return nil, err
	}
	return res, nil
}

// SignIn exchanges scope credentials for a session token.
func (r *SurrealRemote) SignIn(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, err := r.ensure(ctx)
	if err != nil {
		return "", err
	}

	res, err := conn.Signin(map[string]any{
		"NS":    r.cfg.Namespace,
		"DB":    r.cfg.Database,
		"SC":    r.cfg.Scope,
		"email": email,
		"pass":  password,
	})
	if err != nil {
		err = classify(err)
		if isTransient(err) {
			r.dropLocked()
		}
		return "", err
	}

	token, ok := res.(string)
	if !ok || token == "" {
		return "", fmt.Errorf("%w: sign-in returned no token", common.ErrAuthRequired)
	}
	r.token = token
	return token, nil
}

func (r *SurrealRemote) Authenticate(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.token = token
	if r.conn == nil {
		// connection not dialed yet, ensure() will authenticate
		return nil
	}
	if _, err := r.conn.Authenticate(token); err != nil {
		err = classify(err)
		if isTransient(err) {
			r.dropLocked()
		}
		return err
	}
	return nil
}

func (r *SurrealRemote) Upsert(ctx context.Context, record *models.Record) (time.Time, error) {
	w := toWire(record)
	res, err := r.query(ctx,
		`UPDATE type::thing($tb, $id) CONTENT {
			record_id: $record_id,
			owner_id: $owner_id,
			display_name: $display_name,
			payload: $payload,
			modified_at: $modified_at
		}`,
		map[string]any{
			"tb":           recordTable,
			"id":           w.RecordId,
			"record_id":    w.RecordId,
			"owner_id":     w.OwnerId,
			"display_name": w.DisplayName,
			"payload":      w.Payload,
			"modified_at":  w.ModifiedAt,
		})
	if err != nil {
		return time.Time{}, err
	}

	rows, err := marshal.SmartUnmarshal[wireRecord](res, nil)
	if err != nil {
		return time.Time{}, classify(err)
	}
	if len(rows) == 0 {
		return time.Time{}, fmt.Errorf("%w: upsert of %s returned no row", common.ErrPolicyDenied, record.Id)
	}
	return time.UnixMicro(rows[0].ModifiedAt).UTC(), nil
}

func (r *SurrealRemote) Delete(ctx context.Context, id string) error {
	_, err := r.query(ctx, `DELETE type::thing($tb, $id)`, map[string]any{
		"tb": recordTable,
		"id": id,
	})
	return err
}

func (r *SurrealRemote) Get(ctx context.Context, id string) (*models.Record, error) {
	res, err := r.query(ctx, `SELECT * FROM type::thing($tb, $id)`, map[string]any{
		"tb": recordTable,
		"id": id,
	})
	if err != nil {
		return nil, err
	}

	rows, err := marshal.SmartUnmarshal[wireRecord](res, nil)
	if err != nil {
		return nil, classify(err)
	}
	if len(rows) == 0 {
		return nil, common.ErrNotFound
	}
	rec := fromWire(&rows[0])
	return &rec, nil
}

func (r *SurrealRemote) CountByOwner(ctx context.Context, ownerId string) (int, error) {
	res, err := r.query(ctx,
		`SELECT count() FROM type::table($tb) WHERE owner_id = $owner GROUP ALL`,
		map[string]any{"tb": recordTable, "owner": ownerId})
	if err != nil {
		return 0, err
	}

	type countRow struct {
		Count int `json:"count"`
	}
	rows, err := marshal.SmartUnmarshal[countRow](res, nil)
	if err != nil {
		return 0, classify(err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

func (r *SurrealRemote) FetchByOwner(ctx context.Context, ownerId string) ([]models.Record, error) {
	res, err := r.query(ctx,
		`SELECT * FROM type::table($tb) WHERE owner_id = $owner`,
		map[string]any{"tb": recordTable, "owner": ownerId})
	if err != nil {
		return nil, err
	}

	rows, err := marshal.SmartUnmarshal[wireRecord](res, nil)
	if err != nil {
		return nil, classify(err)
	}

	records := make([]models.Record, 0, len(rows))
	for i := range rows {
		records = append(records, fromWire(&rows[i]))
	}
	return records, nil
}

func (r *SurrealRemote) Ping(ctx context.Context) error {
	_, err := r.query(ctx, `RETURN true`, nil)
	return err
}

func (r *SurrealRemote) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked()
}

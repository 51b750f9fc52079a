package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"courierplan/internal/model"
	"courierplan/internal/obs"
)

// SQL implements Store over database/sql. Queries are written with "?"
// placeholders and rebound for drivers that number them.
type SQL struct {
	db       *sql.DB
	numbered bool
}

var _ Store = (*SQL)(nil)

func (s *SQL) q(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) migrate(schema string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for i, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQL) Close() error { return s.db.Close() }

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := time.UnixMilli(ms.Int64).UTC()
	return &t
}

func rawOrNil(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

const runColumns = `id, tenant_id, model_type, state, solver_status, status_code, num_orders, params, result, error, duration_ms, created_at_ms, completed_at_ms`

type rowScanner interface{ Scan(dest ...any) error }

func scanRun(row rowScanner) (model.Run, error) {
	var (
		r              model.Run
		params, result sql.NullString
		created        int64
		completed      sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.TenantID, &r.ModelType, &r.State, &r.SolverStatus, &r.StatusCode, &r.NumOrders,
		&params, &result, &r.Error, &r.DurationMs, &created, &completed)
	if err != nil {
		return model.Run{}, err
	}
	if params.Valid {
		r.Params = json.RawMessage(params.String)
	}
	if result.Valid {
		r.Result = json.RawMessage(result.String)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.CompletedAt = fromMillis(completed)
	return r, nil
}

func (s *SQL) CreateRun(ctx context.Context, run model.Run) (_ model.Run, err error) {
	defer obs.Time(ctx, "store.CreateRun")(&err)
	if run.ID == "" {
		run.ID = newID()
	}
	if run.State == "" {
		run.State = model.RunRunning
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	// millisecond precision round-trips through the database
	run.CreatedAt = time.UnixMilli(millis(run.CreatedAt)).UTC()
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO runs (`+runColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,NULL)`),
		run.ID, run.TenantID, run.ModelType, run.State, run.SolverStatus, run.StatusCode, run.NumOrders,
		rawOrNil(run.Params), rawOrNil(run.Result), run.Error, run.DurationMs, millis(run.CreatedAt))
	if err != nil {
		return model.Run{}, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

func (s *SQL) CompleteRun(ctx context.Context, tenantID, id string, c model.RunCompletion) (_ model.Run, err error) {
	defer obs.Time(ctx, "store.CompleteRun")(&err)
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE runs SET state=?, solver_status=?, status_code=?, result=?, error=?, duration_ms=?, completed_at_ms=? WHERE tenant_id=? AND id=?`),
		c.State, c.SolverStatus, c.StatusCode, rawOrNil(c.Result), c.Error, c.DurationMs, millis(time.Now()), tenantID, id)
	if err != nil {
		return model.Run{}, fmt.Errorf("complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Run{}, ErrNotFound
	}
	return s.GetRun(ctx, tenantID, id)
}

func (s *SQL) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+runColumns+` FROM runs WHERE tenant_id=? AND id=?`), tenantID, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

func (s *SQL) ListRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	cols := strings.Replace(runColumns, "result", "NULL", 1)
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+cols+` FROM runs WHERE tenant_id=? AND id > ? ORDER BY id LIMIT ?`), tenantID, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", fmt.Errorf("list runs: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("list runs: %w", err)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (s *SQL) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := newID()
	ev, err := json.Marshal(req.Events)
	if err != nil {
		return model.Subscription{}, err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES (?,?,?,?,?)`),
		id, req.TenantID, req.URL, string(ev), req.Secret)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (s *SQL) scanSubscriptions(rows *sql.Rows, tenantID string) ([]model.Subscription, error) {
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		sub := model.Subscription{TenantID: tenantID}
		var ev string
		if err := rows.Scan(&sub.ID, &sub.URL, &sub.Secret, &ev); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ev), &sub.Events); err != nil {
			return nil, fmt.Errorf("subscription %s events: %w", sub.ID, err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQL) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, url, secret, events FROM subscriptions WHERE tenant_id=? ORDER BY id`), tenantID)
	if err != nil {
		return nil, fmt.Errorf("subscriptions for event: %w", err)
	}
	all, err := s.scanSubscriptions(rows, tenantID)
	if err != nil {
		return nil, fmt.Errorf("subscriptions for event: %w", err)
	}
	out := all[:0]
	for _, sub := range all {
		if sub.Wants(eventType) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *SQL) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, url, secret, events FROM subscriptions WHERE tenant_id=? AND id > ? ORDER BY id LIMIT ?`), tenantID, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list subscriptions: %w", err)
	}
	out, err := s.scanSubscriptions(rows, tenantID)
	if err != nil {
		return nil, "", fmt.Errorf("list subscriptions: %w", err)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (s *SQL) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM subscriptions WHERE tenant_id=? AND id=?`), tenantID, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := newID()
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at_ms, dedup_key)
		VALUES (?,?,?,?,?,?,?,?,0,?,?)
		ON CONFLICT (tenant_id, event_type, url, dedup_key) DO NOTHING`),
		id, tenantID, subscriptionID, eventType, url, secret, string(payload), DeliveryPending, millis(time.Now()), computeDedupKey(payload))
	if err != nil {
		return "", fmt.Errorf("enqueue webhook: %w", err)
	}
	return id, nil
}

const deliveryColumns = `id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at_ms, last_error, response_code, latency_ms, delivered_at_ms`

func scanDeliveries(rows *sql.Rows) ([]WebhookDelivery, error) {
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var (
			d         WebhookDelivery
			payload   string
			next      int64
			delivered sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &payload, &d.Status,
			&d.Attempts, &next, &d.LastError, &d.ResponseCode, &d.LatencyMs, &delivered); err != nil {
			return nil, err
		}
		d.Payload = []byte(payload)
		d.NextAttemptAt = time.UnixMilli(next).UTC()
		d.DeliveredAt = fromMillis(delivered)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQL) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+deliveryColumns+` FROM webhook_deliveries
		WHERE status IN (?, ?) AND next_attempt_at_ms <= ? ORDER BY next_attempt_at_ms ASC LIMIT ?`),
		DeliveryPending, DeliveryRetry, millis(time.Now()), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due deliveries: %w", err)
	}
	out, err := scanDeliveries(rows)
	if err != nil {
		return nil, fmt.Errorf("fetch due deliveries: %w", err)
	}
	return out, nil
}

func (s *SQL) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	var err error
	if success {
		_, err = s.db.ExecContext(ctx, s.q(`UPDATE webhook_deliveries SET attempts=attempts+1, status=?, delivered_at_ms=?, response_code=?, latency_ms=? WHERE id=?`),
			DeliveryDelivered, millis(time.Now()), responseCode, latencyMs, id)
	} else {
		if nextAttemptAt == nil {
			t := time.Now().Add(time.Minute)
			nextAttemptAt = &t
		}
		_, err = s.db.ExecContext(ctx, s.q(`UPDATE webhook_deliveries SET attempts=attempts+1, status=?, last_error=?, next_attempt_at_ms=?, response_code=?, latency_ms=? WHERE id=?`),
			DeliveryRetry, lastError, millis(*nextAttemptAt), responseCode, latencyMs, id)
	}
	if err != nil {
		return fmt.Errorf("mark delivery: %w", err)
	}
	return nil
}

func (s *SQL) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE webhook_deliveries SET attempts=attempts+1, status=?, last_error=?, response_code=?, latency_ms=? WHERE id=?`),
		DeliveryFailed, lastError, responseCode, latencyMs, id)
	if err != nil {
		return fmt.Errorf("fail delivery: %w", err)
	}
	return nil
}

func (s *SQL) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]WebhookDelivery, string, error) {
	limit = clampLimit(limit)
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE tenant_id=? AND id > ?`
	args := []any{tenantID, cursor}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, "", fmt.Errorf("list deliveries: %w", err)
	}
	out, err := scanDeliveries(rows)
	if err != nil {
		return nil, "", fmt.Errorf("list deliveries: %w", err)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

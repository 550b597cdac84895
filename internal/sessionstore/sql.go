package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

var tracer = otel.Tracer("chat-insights/sessionstore")

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// sqliteTimeLayout is fixed width so stored timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// dialect hides the placeholder, array and timestamp differences between
// postgres and sqlite.
type dialect struct {
	name       string
	sqlDriver  string
	postgresPH bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres, "pgx":
		return dialect{name: DriverPostgres, sqlDriver: "pgx", postgresPH: true}, nil
	case DriverSQLite:
		return dialect{name: DriverSQLite, sqlDriver: "sqlite"}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// ph returns the n-th (1-based) placeholder.
func (d dialect) ph(n int) string {
	if d.postgresPH {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// in renders "col IN (...)" for the values, appending them to args. Postgres
// binds a single array parameter.
func (d dialect) in(col string, values []string, args []any) (string, []any) {
	if d.postgresPH {
		args = append(args, pq.Array(values))
		return fmt.Sprintf("%s = ANY(%s)", col, d.ph(len(args))), args
	}
	phs := make([]string, len(values))
	for i, v := range values {
		args = append(args, v)
		phs[i] = d.ph(len(args))
	}
	return fmt.Sprintf("%s IN (%s)", col, strings.Join(phs, ", ")), args
}

func (d dialect) timeArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	if d.postgresPH {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// dbTime scans either a native timestamp or the sqlite text form.
type dbTime struct{ time.Time }

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
	return nil
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// SQLStore reads and writes sessions in postgres or sqlite.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

// Open connects to the database. The schema is not migrated; call Migrate.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if d.name == DriverSQLite {
		// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(20 * time.Minute)
	}
	return &SQLStore{db: db, d: d}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Driver returns the dialect name, DriverPostgres or DriverSQLite.
func (s *SQLStore) Driver() string {
	return s.d.name
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sessionColumns = `id, created_at, last_message_at, platform, first_query, message_count,
	user_queries, duration_seconds, app, feedback`

// ListSessions returns matching sessions with their messages.
func (s *SQLStore) ListSessions(ctx context.Context, q Query) ([]models.ChatSession, error) {
	ctx, span := tracer.Start(ctx, "sessionstore.list_sessions",
		trace.WithAttributes(
			attribute.String("db.system", s.d.name),
			attribute.String("query.from", q.From.Format(time.RFC3339)),
			attribute.String("query.to", q.To.Format(time.RFC3339)),
		))
	defer span.End()

	var where []string
	var args []any
	if !q.From.IsZero() {
		args = append(args, s.d.timeArg(q.From))
		where = append(where, "created_at >= "+s.d.ph(len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, s.d.timeArg(q.To))
		where = append(where, "created_at < "+s.d.ph(len(args)))
	}
	if len(q.Platforms) > 0 {
		var clause string
		clause, args = s.d.in("platform", q.Platforms, args)
		where = append(where, clause)
	}

	query := "SELECT " + sessionColumns + " FROM chat_sessions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}

	sessions, err := s.querySessions(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := s.attachMessages(ctx, sessions); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("sessions.count", len(sessions)))
	return sessions, nil
}

// GetSession returns one session with its messages.
func (s *SQLStore) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	query := "SELECT " + sessionColumns + " FROM chat_sessions WHERE id = " + s.d.ph(1)
	sessions, err := s.querySessions(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrSessionNotFound
	}
	if err := s.attachMessages(ctx, sessions); err != nil {
		return nil, err
	}
	return &sessions[0], nil
}

func (s *SQLStore) querySessions(ctx context.Context, query string, args ...any) ([]models.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.ChatSession{}
	for rows.Next() {
		var (
			cs               models.ChatSession
			created, last    dbTime
			queries, app, fb []byte
		)
		if err := rows.Scan(&cs.ID, &created, &last, &cs.Platform, &cs.FirstQuery, &cs.MessageCount,
			&queries, &cs.DurationSeconds, &app, &fb); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		cs.CreatedAt, cs.LastMessageAt = created.Time, last.Time
		if err := unmarshalColumn(queries, &cs.UserQueries); err != nil {
			return nil, fmt.Errorf("session %s user_queries: %w", cs.ID, err)
		}
		if err := unmarshalColumn(app, &cs.App); err != nil {
			return nil, fmt.Errorf("session %s app: %w", cs.ID, err)
		}
		if err := unmarshalColumn(fb, &cs.Feedback); err != nil {
			return nil, fmt.Errorf("session %s feedback: %w", cs.ID, err)
		}
		sessions = append(sessions, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

func (s *SQLStore) attachMessages(ctx context.Context, sessions []models.ChatSession) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, len(sessions))
	index := make(map[string]int, len(sessions))
	for i, cs := range sessions {
		ids[i] = cs.ID
		index[cs.ID] = i
	}

	clause, args := s.d.in("session_id", ids, nil)
	query := `SELECT session_id, ts, content, is_user, action, length, has_link, has_action, platform, language
		FROM chat_messages WHERE ` + clause + ` ORDER BY session_id, seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sessionID string
			ts        dbTime
			m         models.ChatMessage
		)
		if err := rows.Scan(&sessionID, &ts, &m.Content, &m.IsUser, &m.Action, &m.Length,
			&m.HasLink, &m.HasAction, &m.Platform, &m.Language); err != nil {
			return fmt.Errorf("failed to scan message: %w", err)
		}
		m.Timestamp = ts.Time
		i := index[sessionID]
		sessions[i].Messages = append(sessions[i].Messages, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate messages: %w", err)
	}
	return nil
}

// SaveSession inserts or replaces a session and all of its messages. A
// session without a creation time takes its first message's timestamp.
func (s *SQLStore) SaveSession(ctx context.Context, cs models.ChatSession) error {
	if cs.ID == "" {
		return errors.New("session id is required")
	}
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = firstMessageTime(cs.Messages)
		if cs.CreatedAt.IsZero() {
			return fmt.Errorf("session %s: %w", cs.ID, ErrNoCreationTime)
		}
	}

	queries, err := json.Marshal(nonNil(cs.UserQueries))
	if err != nil {
		return fmt.Errorf("failed to marshal user queries: %w", err)
	}
	app, err := json.Marshal(cs.App)
	if err != nil {
		return fmt.Errorf("failed to marshal app metadata: %w", err)
	}
	feedback, err := json.Marshal(cs.Feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p := s.d.ph
	upsert := fmt.Sprintf(`INSERT INTO chat_sessions (%s)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (id) DO UPDATE SET
			created_at = excluded.created_at,
			last_message_at = excluded.last_message_at,
			platform = excluded.platform,
			first_query = excluded.first_query,
			message_count = excluded.message_count,
			user_queries = excluded.user_queries,
			duration_seconds = excluded.duration_seconds,
			app = excluded.app,
			feedback = excluded.feedback`,
		sessionColumns, p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9), p(10))
	if _, err := tx.ExecContext(ctx, upsert,
		cs.ID, s.d.timeArg(cs.CreatedAt), s.d.timeArg(cs.LastMessageAt), cs.Platform, cs.FirstQuery,
		cs.MessageCount, string(queries), cs.DurationSeconds, string(app), string(feedback)); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chat_messages WHERE session_id = "+p(1), cs.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO chat_messages
		(session_id, seq, ts, content, is_user, action, length, has_link, has_action, platform, language)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9), p(10), p(11))
	for i, m := range cs.Messages {
		if _, err := tx.ExecContext(ctx, insert, cs.ID, i, s.d.timeArg(m.Timestamp), m.Content, m.IsUser,
			m.Action, m.Length, m.HasLink, m.HasAction, m.Platform, m.Language); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

func firstMessageTime(messages []models.ChatMessage) time.Time {
	for _, m := range messages {
		if !m.Timestamp.IsZero() {
			return m.Timestamp
		}
	}
	return time.Time{}
}

func unmarshalColumn(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

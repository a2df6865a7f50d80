package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"eventbot/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// runMigrations applies the embedded schema files in name order, one
// transaction per file.
func runMigrations(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := fs.ReadFile(migrationsFS, name)
		if err != nil {
			return err
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(script)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Users ---

// UpsertUser inserts the user with defaults, or refreshes only the identity
// fields on conflict. Timezone and subscription survive re-registration.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}
	tier := u.Tier
	if tier == "" {
		tier = domain.TierFree
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			user_id, username, first_name, tz, tier, lifetime,
			expires_at, auto_renew, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username   = excluded.username,
			first_name = excluded.first_name`,
		u.ID, u.Username, u.FirstName, u.TZ, string(tier), boolToInt(u.Lifetime),
		toNullInt64(u.ExpiresAt), boolToInt(u.AutoRenew), created,
	)
	return err
}

func (r *SQLiteRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, first_name, tz, tier, lifetime,
		       expires_at, auto_renew, created_at
		FROM users
		WHERE user_id = ?`, id)
	return scanUser(row)
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u         domain.User
		tier      string
		lifetime  int
		expiresNS sql.NullInt64
		autoRenew int
		createdAt int64
	)
	if err := row.Scan(
		&u.ID, &u.Username, &u.FirstName, &u.TZ, &tier, &lifetime,
		&expiresNS, &autoRenew, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Tier = domain.Tier(tier)
	u.Lifetime = lifetime != 0
	u.ExpiresAt = fromNullInt64(expiresNS)
	u.AutoRenew = autoRenew != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

func (r *SQLiteRepo) SetTimezone(ctx context.Context, id int64, tz string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET tz = ? WHERE user_id = ?`, tz, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *SQLiteRepo) SetSubscription(ctx context.Context, id int64, tier domain.Tier, lifetime bool, expiresAt *time.Time, autoRenew bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET tier = ?, lifetime = ?, expires_at = ?, auto_renew = ?
		WHERE user_id = ?`,
		string(tier), boolToInt(lifetime), toNullInt64(expiresAt), boolToInt(autoRenew), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Events ---

const eventCols = `id, title, description, event_at, local_at, created_by, target_type, target_id,
	file_type, file_id, recurrence,
	remind_7d, remind_3d, remind_2d, remind_1d, remind_6h,
	remind_2h, remind_1h, remind_45m, remind_30m, remind_15m, created_at`

func (r *SQLiteRepo) InsertEvent(ctx context.Context, e *domain.Event) error {
	if e == nil {
		return errors.New("nil event")
	}
	flags := e.Flags
	if flags == nil {
		flags = domain.NewFlagSet()
	}
	var fileType, fileID sql.NullString
	if e.Attachment != nil {
		fileType = toNullString(e.Attachment.Type)
		fileID = toNullString(e.Attachment.ID)
	}
	created := e.CreatedAt.UTC().Unix()
	if e.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	args := []any{
		e.ID, e.Title, e.Description, e.At.UTC().Unix(), e.LocalAt, e.CreatedBy,
		string(e.TargetType), e.TargetID, fileType, fileID, string(e.Recurrence),
	}
	for _, fc := range flagColumns {
		args = append(args, flagToInt(flags[fc.lead]))
	}
	args = append(args, created)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (`+eventCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	return err
}

func (r *SQLiteRepo) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	var (
		e          domain.Event
		eventAt    int64
		targetType string
		fileType   sql.NullString
		fileID     sql.NullString
		recurrence string
		flagInts   [10]int
		createdAt  int64
	)
	dest := []any{
		&e.ID, &e.Title, &e.Description, &eventAt, &e.LocalAt, &e.CreatedBy,
		&targetType, &e.TargetID, &fileType, &fileID, &recurrence,
	}
	for i := range flagInts {
		dest = append(dest, &flagInts[i])
	}
	dest = append(dest, &createdAt)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	e.At = time.Unix(eventAt, 0).UTC()
	e.TargetType = domain.ScopeType(targetType)
	if fileID.Valid {
		e.Attachment = &domain.Attachment{Type: fileType.String, ID: fileID.String}
	}
	e.Recurrence = domain.ParseRecurrence(recurrence)
	e.Flags = domain.NewFlagSet()
	for i, fc := range flagColumns {
		e.Flags[fc.lead] = intToFlag(flagInts[i])
	}
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &e, nil
}

// UpdateEventFlags writes the full reminder flag set in a single statement.
func (r *SQLiteRepo) UpdateEventFlags(ctx context.Context, id string, fs domain.FlagSet) error {
	sets := make([]string, 0, len(flagColumns))
	args := make([]any, 0, len(flagColumns)+1)
	for _, fc := range flagColumns {
		sets = append(sets, fc.col+" = ?")
		args = append(args, flagToInt(fs[fc.lead]))
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *SQLiteRepo) UpdateEventTime(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET event_at = ? WHERE id = ?`, at.UTC().Unix(), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *SQLiteRepo) ListFutureByOwner(ctx context.Context, ownerID int64, now time.Time) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventCols+`
		FROM events
		WHERE target_type = ? AND target_id = ? AND event_at > ?
		ORDER BY event_at ASC`,
		string(domain.ScopePrivate), ownerID, now.UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (r *SQLiteRepo) ListUpcoming(ctx context.Context, tt domain.ScopeType, targetID int64, now time.Time, limit int) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventCols+`
		FROM events
		WHERE target_type = ? AND target_id = ? AND event_at > ?
		ORDER BY event_at ASC
		LIMIT ?`,
		string(tt), targetID, now.UTC().Unix(), limit,
	)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]domain.Event, error) {
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// --- Groups ---

// CreateGroup inserts the group and the owner's implicit membership in one
// transaction.
func (r *SQLiteRepo) CreateGroup(ctx context.Context, name string, ownerID int64, now time.Time) (*domain.Group, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO groups (name, owner_id, created_at) VALUES (?, ?, ?)`,
		name, ownerID, now.UTC().Unix(),
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id) VALUES (?, ?)`,
		id, ownerID,
	); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &domain.Group{ID: id, Name: name, OwnerID: ownerID, CreatedAt: now.UTC()}, nil
}

func (r *SQLiteRepo) GetGroup(ctx context.Context, id int64) (*domain.Group, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT group_id, name, owner_id, created_at FROM groups WHERE group_id = ?`, id)
	return scanGroup(row)
}

func (r *SQLiteRepo) GetGroupByName(ctx context.Context, memberID int64, name string) (*domain.Group, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT g.group_id, g.name, g.owner_id, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.group_id
		WHERE m.user_id = ? AND g.name = ?
		LIMIT 1`,
		memberID, name,
	)
	return scanGroup(row)
}

func scanGroup(row interface{ Scan(...any) error }) (*domain.Group, error) {
	var (
		g         domain.Group
		createdAt int64
	)
	if err := row.Scan(&g.ID, &g.Name, &g.OwnerID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	g.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &g, nil
}

func (r *SQLiteRepo) ListGroupsForMember(ctx context.Context, userID int64) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.group_id, g.name, g.owner_id, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.group_id
		WHERE m.user_id = ?
		ORDER BY g.name ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *SQLiteRepo) CountOwnedGroups(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM groups WHERE owner_id = ?`, ownerID).Scan(&n)
	return n, err
}

// AddGroupMember records membership; a user belongs to a group at most once.
func (r *SQLiteRepo) AddGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)`,
		groupID, userID,
	)
	return err
}

// --- Curator-client relations ---

func (r *SQLiteRepo) AddRelation(ctx context.Context, curatorID, clientID int64, now time.Time) error {
	if curatorID == clientID {
		return errors.New("self-curation not allowed")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO curator_client (curator_id, client_id, added_at)
		VALUES (?, ?, ?)`,
		curatorID, clientID, now.UTC().Unix(),
	)
	return err
}

func (r *SQLiteRepo) RemoveRelation(ctx context.Context, curatorID, clientID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM curator_client WHERE curator_id = ? AND client_id = ?`,
		curatorID, clientID,
	)
	return err
}

func (r *SQLiteRepo) HasRelation(ctx context.Context, curatorID, clientID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM curator_client WHERE curator_id = ? AND client_id = ?`,
		curatorID, clientID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteRepo) ListClients(ctx context.Context, curatorID int64) ([]domain.User, error) {
	return r.listRelated(ctx, `
		SELECT u.user_id, u.username, u.first_name, u.tz, u.tier, u.lifetime,
		       u.expires_at, u.auto_renew, u.created_at
		FROM curator_client cc
		JOIN users u ON u.user_id = cc.client_id
		WHERE cc.curator_id = ?
		ORDER BY cc.added_at ASC`, curatorID)
}

func (r *SQLiteRepo) ListCurators(ctx context.Context, clientID int64) ([]domain.User, error) {
	return r.listRelated(ctx, `
		SELECT u.user_id, u.username, u.first_name, u.tz, u.tier, u.lifetime,
		       u.expires_at, u.auto_renew, u.created_at
		FROM curator_client cc
		JOIN users u ON u.user_id = cc.curator_id
		WHERE cc.client_id = ?
		ORDER BY cc.added_at ASC`, clientID)
}

func (r *SQLiteRepo) listRelated(ctx context.Context, query string, id int64) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *SQLiteRepo) IsCurator(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM curator_client WHERE curator_id = ? LIMIT 1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

package db

import (
	"context"
	"database/sql"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"time"
)

// DB stores the roster and streams in Postgres.
type DB struct {
	db      *bun.DB
	timeout time.Duration
}

const defaultTimeout = time.Minute

var updatedColumns = []string{"title", "channel_id", "channel_title", "scheduled_at", "status", "url"}

func New(address, user, password, database string) *DB {
	connector := pgdriver.NewConnector(
		pgdriver.WithInsecure(true),
		pgdriver.WithAddr(address),
		pgdriver.WithUser(user),
		pgdriver.WithPassword(password),
		pgdriver.WithDatabase(database),
	)
	sqldb := sql.OpenDB(connector)
	return Wrap(sqldb)
}

// Wrap uses an already opened Postgres connection.
func Wrap(sqldb *sql.DB) *DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	return &DB{db: db, timeout: defaultTimeout}
}

// SetTimeout bounds every subsequent call.
func (d *DB) SetTimeout(duration time.Duration) {
	d.timeout = duration
}

func (d *DB) EnableDebug() {
	d.db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
}

func (d *DB) Close() error {
	return d.db.Close()
}

// EnsureTables creates missing tables. Existing tables are left untouched.
func (d *DB) EnsureTables(ctx context.Context) error {
	for _, model := range []interface{}{(*Channel)(nil), (*Stream)(nil)} {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		_, err := d.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		cancel()
		if err != nil {
			return errors.Wrap(err, "error during creating tables")
		}
	}
	return nil
}

// AddChannel inserts a roster entry. The watcher never calls it; it exists
// for seeding.
func (d *DB) AddChannel(ctx context.Context, c Channel) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	_, err := d.db.NewInsert().Model(&c).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "error during adding channel")
	}
	return nil
}

func (d *DB) ListChannels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	err := d.db.NewSelect().
		Model(&channels).
		OrderExpr("channel.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error during querying channels")
	}
	return channels, nil
}

func (d *DB) SnapshotStreams(ctx context.Context) ([]Stream, error) {
	var streams []Stream
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	err := d.db.NewSelect().Model(&streams).Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error during querying streams")
	}
	return streams, nil
}

func (d *DB) Append(ctx context.Context, s Stream) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	_, err := d.db.NewInsert().Model(&s).Exec(ctx)
	if err != nil {
		return wrapWrite(err, "error during adding stream %v", s.StreamId)
	}
	return nil
}

func (d *DB) Update(ctx context.Context, key StreamKey, u StreamUpdate) error {
	s := u.apply(Stream{Platform: key.Platform, StreamId: key.StreamId})
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	res, err := d.db.NewUpdate().
		Model(&s).
		Column(updatedColumns...).
		Where("platform = ?", key.Platform).
		Where("stream_id = ?", key.StreamId).
		Exec(ctx)
	if err != nil {
		return wrapWrite(err, "error during updating stream %v", key.StreamId)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapWrite(err, "error during updating stream %v", key.StreamId)
	}
	if n == 0 {
		return wrapWrite(ErrNotFound, "cannot update stream %v/%v", key.Platform, key.StreamId)
	}
	return nil
}

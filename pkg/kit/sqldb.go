package kit

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	pingTimeout = 3 * time.Second
)

var ErrUnsupportedDSN = errors.New("unsupported database url")

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type DB struct {
	*sqlx.DB
	Dialect string
}

func UsesMemory(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	return dsn == "" || dsn == "memory"
}

func OpenDB(ctx context.Context, dsn string) (*DB, error) {
	driver, dialect, source, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	if dialect == DialectSQLite {
		if dir := filepath.Dir(source); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "create sqlite dir")
			}
		}
		source += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dialect)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s", dialect)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

func parseDSN(dsn string) (driver, dialect, source string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", DialectPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", DialectSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return "sqlite", DialectSQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	default:
		return "", "", "", errors.Wrap(ErrUnsupportedDSN, dsn)
	}
}

func Migrate(db *DB, fsys fs.FS) error {
	src, err := iofs.New(fsys, path.Join("migrations", db.Dialect))
	if err != nil {
		return errors.Wrap(err, "migration source")
	}

	var drv database.Driver
	switch db.Dialect {
	case DialectPostgres:
		drv, err = migratepgx.WithInstance(db.DB.DB, &migratepgx.Config{})
	case DialectSQLite:
		drv, err = migratesqlite.WithInstance(db.DB.DB, &migratesqlite.Config{})
	default:
		err = errors.Wrap(ErrUnsupportedDSN, db.Dialect)
	}
	if err != nil {
		return errors.Wrap(err, "migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, db.Dialect, drv)
	if err != nil {
		return errors.Wrap(err, "migrate init")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate up")
	}
	return nil
}

func WithTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

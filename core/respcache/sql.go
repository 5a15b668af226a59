package respcache

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // sqlite driver
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type SQLConfig struct {
	Driver string `config:"driver" validate:"required"`
	// DSN is a lib/pq connection string or a sqlite file name.
	DSN   string `config:"dsn" validate:"required"`
	Table string `config:"table" validate:"required"`
	// MaxOpenConns zero means the database/sql default.
	MaxOpenConns int `config:"max-open-conns" validate:"min=0"`
}

func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		Driver: DriverPostgres,
		Table:  "response_cache",
	}
}

var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQL is a Store in a (url, doc, last_visited) table. Every Put is written
// through, so Save is a no-op.
type SQL struct {
	db      *sql.DB
	driver  string
	queries sqlQueries
}

type sqlQueries struct {
	get, put, keys string
}

func NewSQL(conf SQLConfig) (*SQL, error) {
	if conf.Driver != DriverPostgres && conf.Driver != DriverSQLite {
		return nil, errors.Errorf("unsupported response cache driver %q; supported: %s, %s",
			conf.Driver, DriverPostgres, DriverSQLite)
	}
	if !tableNameRegexp.MatchString(conf.Table) {
		return nil, errors.Errorf("invalid response cache table name %q", conf.Table)
	}
	db, err := sql.Open(conf.Driver, conf.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "response cache open")
	}
	if conf.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.MaxOpenConns)
	}
	s := &SQL{db: db, driver: conf.Driver}
	s.queries = sqlQueries{
		get: fmt.Sprintf("SELECT doc, last_visited FROM %s WHERE url = %s", conf.Table, s.arg(1)),
		put: fmt.Sprintf("INSERT INTO %s (url, doc, last_visited) VALUES (%s, %s, %s) "+
			"ON CONFLICT (url) DO UPDATE SET doc = excluded.doc, last_visited = excluded.last_visited",
			conf.Table, s.arg(1), s.arg(2), s.arg(3)),
		keys: fmt.Sprintf("SELECT url FROM %s ORDER BY url", conf.Table),
	}
	blob := "BYTEA"
	if conf.Driver == DriverSQLite {
		blob = "BLOB"
	}
	_, err = db.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (url TEXT PRIMARY KEY, doc %s NOT NULL, last_visited BIGINT NOT NULL)",
		conf.Table, blob))
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "response cache table create")
	}
	return s, nil
}

func (s *SQL) arg(n int) string {
	if s.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s *SQL) Get(key string) (Entry, bool, error) {
	var (
		doc    []byte
		millis int64
	)
	err := s.db.QueryRow(s.queries.get, key).Scan(&doc, &millis)
	switch {
	case err == sql.ErrNoRows:
		return Entry{}, false, nil
	case err != nil:
		return Entry{}, false, s.wrap(err, "get")
	}
	return Entry{Doc: doc, LastVisited: time.UnixMilli(millis)}, true, nil
}

func (s *SQL) Put(key string, doc []byte, lastVisited time.Time) error {
	_, err := s.db.Exec(s.queries.put, key, doc, lastVisited.UnixMilli())
	return s.wrap(err, "put")
}

func (s *SQL) Keys() ([]string, error) {
	rows, err := s.db.Query(s.queries.keys)
	if err != nil {
		return nil, s.wrap(err, "keys")
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, s.wrap(err, "keys")
		}
		keys = append(keys, k)
	}
	return keys, s.wrap(rows.Err(), "keys")
}

func (s *SQL) Save() error { return nil }

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "database is closed") {
		return ErrClosed
	}
	return errors.Wrapf(err, "response cache %s", op)
}

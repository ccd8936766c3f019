package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	name    string
	open    gorm.Dialector
	db      *gorm.DB
	logger  logger.Interface
	timeout time.Duration
}

// New prepares a store for the given driver. Nothing is opened until Start.
func New(dbType, dbConn string, debug bool) (*Store, error) {
	var open gorm.Dialector
	switch dbType {
	case "postgres":
		open = postgres.Open(dbConn)
	case "mysql":
		open = mysql.Open(dbConn)
	case "sqlite":
		open = sqlite.Open(dbConn)
	default:
		return nil, fmt.Errorf("storage: unknown db type: %s", dbType)
	}
	level := logger.Silent
	if debug {
		level = logger.Warn
	}
	return &Store{
		name:    dbType,
		open:    open,
		logger:  logger.Default.LogMode(level),
		timeout: 30 * time.Second,
	}, nil
}

// Start opens and pings the database, giving up once the open timeout or
// ctx expires.
func (s *Store) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		db  *gorm.DB
		err error
	}
	done := make(chan result, 1)
	go func() {
		db, err := gorm.Open(s.open, &gorm.Config{Logger: s.logger})
		done <- result{db: db, err: err}
	}()

	var db *gorm.DB
	select {
	case <-ctx.Done():
		return fmt.Errorf("storage: couldn't open %s database: %w", s.name, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("storage: couldn't open %s database: %w", s.name, r.err)
		}
		db = r.db
	}
	pool, err := db.DB()
	if err != nil {
		return fmt.Errorf("storage: couldn't get %s pool: %w", s.name, err)
	}
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return fmt.Errorf("storage: couldn't ping %s database: %w", s.name, err)
	}
	s.db = db
	return nil
}

// Stop closes the underlying connection pool.
func (s *Store) Stop() error {
	if s.db == nil {
		return nil
	}
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("storage: couldn't get database: %w", err)
	}
	return db.Close()
}

// Migrate applies pending upgrades and then creates or alters tables to
// match the models.
func (s *Store) Migrate(ctx context.Context) error {
	fresh := !s.db.WithContext(ctx).Migrator().HasTable(&Artifact{})
	if err := s.upgrade(ctx, fresh); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&Artifact{}, &File{}); err != nil {
		return fmt.Errorf("storage: failed to migrate database: %w", err)
	}
	return nil
}

// Filter is an extra condition for list and prune queries.
type Filter struct {
	Query interface{}
	Args  []interface{}
}

func Where(query interface{}, args ...interface{}) Filter {
	return Filter{Query: query, Args: args}
}

func applyFilters(q *gorm.DB, filters []Filter) *gorm.DB {
	for _, f := range filters {
		q = q.Where(f.Query, f.Args...)
	}
	return q
}

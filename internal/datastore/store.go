package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // postgres database/sql driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/roboweedmaps/rwm-dataset/internal/conf"
	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
)

// Supported database drivers.
const (
	DriverSQLServer = conf.DriverSQLServer
	DriverMySQL     = conf.DriverMySQL
	DriverPostgres  = conf.DriverPostgres
	DriverSQLite    = conf.DriverSQLite
)

// DefaultBlacklistedPlantIDs are plant ids that never carry a usable class:
// placeholders, unknown plants and non-plant markers.
var DefaultBlacklistedPlantIDs = conf.DefaultBlacklistedPlantIDs

// Store reads the RWM annotation schema through GORM.
type Store struct {
	db        *gorm.DB
	driver    string
	schema    string
	blacklist []int64
}

// Open connects to the configured database and verifies the connection.
func Open(cfg conf.Database) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger(), cfg.SlowQueryThreshold),
	})
	if err != nil {
		return nil, dbError(fmt.Errorf("open %s database: %w", cfg.Driver, err), "open", errors.PriorityHigh,
			"driver", cfg.Driver)
	}

	store := NewStore(db, cfg.Schema, cfg.BlacklistedPlantIDs)
	store.driver = cfg.Driver

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout(cfg))
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	GetLogger().Info("connected to database",
		logger.String("driver", cfg.Driver),
		logger.String("server", cfg.Server),
		logger.String("database", cfg.Name))
	return store, nil
}

// NewStore wraps an open GORM handle. A nil blacklist selects
// DefaultBlacklistedPlantIDs; an empty non-nil one disables the filter.
func NewStore(db *gorm.DB, schema string, blacklist []int64) *Store {
	if blacklist == nil {
		blacklist = DefaultBlacklistedPlantIDs
	}
	return &Store{
		db:        db,
		driver:    db.Dialector.Name(),
		schema:    strings.TrimSpace(schema),
		blacklist: blacklist,
	}
}

// DB returns the underlying GORM handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "ping", errors.PriorityHigh)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(fmt.Errorf("ping %s database: %w", s.driver, err), "ping", errors.PriorityHigh,
			"driver", s.driver)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close", "")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "")
	}
	return nil
}

// table qualifies a table name with the configured schema.
func (s *Store) table(name string) string {
	if s.schema == "" {
		return name
	}
	return s.schema + "." + name
}

// quote renders a possibly dotted identifier in the dialect's quoting.
func (s *Store) quote(ident string) string {
	var b strings.Builder
	s.db.Dialector.QuoteTo(&b, ident)
	return b.String()
}

func connectTimeout(cfg conf.Database) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return 30 * time.Second
}

// dialectorFor builds the GORM dialector for cfg.Driver.
func dialectorFor(cfg conf.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLServer:
		return sqlserver.Open(sqlServerDSN(cfg)), nil
	case DriverMySQL:
		return mysql.Open(mySQLDSN(cfg)), nil
	case DriverPostgres:
		sqlDB, err := sql.Open("postgres", postgresDSN(cfg))
		if err != nil {
			return nil, dbError(err, "open", errors.PriorityHigh, "driver", cfg.Driver)
		}
		return postgres.New(postgres.Config{Conn: sqlDB}), nil
	case DriverSQLite:
		if cfg.Name == "" {
			return nil, validationError("sqlite database path is required", "database.name", cfg.Name)
		}
		return sqlite.Open(cfg.Name), nil
	default:
		return nil, validationError(fmt.Sprintf("unsupported database driver %q", cfg.Driver), "database.driver", cfg.Driver)
	}
}

func hostPort(cfg conf.Database, defaultPort int) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(cfg.Server, strconv.Itoa(port))
}

func sqlServerDSN(cfg conf.Database) string {
	q := url.Values{}
	q.Set("database", cfg.Name)
	if cfg.Encrypt {
		q.Set("encrypt", "true")
	} else {
		q.Set("encrypt", "disable")
	}
	q.Set("connection timeout", strconv.Itoa(int(connectTimeout(cfg).Seconds())))
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     hostPort(cfg, 1433),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func mySQLDSN(cfg conf.Database) string {
	mc := mysqldrv.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = hostPort(cfg, 3306)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Timeout = connectTimeout(cfg)
	if cfg.Encrypt {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

func postgresDSN(cfg conf.Database) string {
	q := url.Values{}
	if cfg.Encrypt {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}
	q.Set("connect_timeout", strconv.Itoa(int(connectTimeout(cfg).Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     hostPort(cfg, 5432),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

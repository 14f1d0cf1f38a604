package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a gorm handle to one endpoint using the configured engine
// and verifies it with a ping bounded by TimeoutSeconds.
func Connect(cfg Config, ep Endpoint) (*gorm.DB, error) {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	dialector, err := dialectorFor(cfg.Engine, ep, timeout)
	if err != nil {
		return nil, err
	}

	// Statement logging is done by the executor, keep gorm quiet.
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", endpointLabel(ep), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", endpointLabel(ep), err)
	}

	return db, nil
}

func dialectorFor(engine string, ep Endpoint, timeout int) (gorm.Dialector, error) {
	d, err := DialectFor(engine)
	if err != nil {
		return nil, err
	}

	switch d.Engine {
	case EngineSQLite:
		if ep.File == "" {
			return nil, fmt.Errorf("sqlite endpoint %s has no file", endpointLabel(ep))
		}
		return sqlite.Open(ep.File + "?_busy_timeout=5000"), nil
	case EngineMySQL, EngineMariaDB:
		// Special characters in the password must be URL encoded for the mysql DSN.
		userInfo := url.UserPassword(ep.User, ep.Password).String()
		dsn := fmt.Sprintf("%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
			userInfo, ep.Host, ep.Port, ep.DBName, timeout, timeout, timeout)
		return mysql.Open(dsn), nil
	case EnginePostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(ep.User, ep.Password),
			Host:     fmt.Sprintf("%s:%d", ep.Host, ep.Port),
			Path:     "/" + ep.DBName,
			RawQuery: fmt.Sprintf("sslmode=disable&connect_timeout=%d", timeout),
		}
		return postgres.Open(u.String()), nil
	}
	return nil, fmt.Errorf("unsupported database engine: %q", engine)
}

func endpointLabel(ep Endpoint) string {
	switch {
	case ep.Name != "":
		return ep.Name
	case ep.File != "":
		return ep.File
	default:
		return fmt.Sprintf("%s:%d/%s", ep.Host, ep.Port, ep.DBName)
	}
}

// Pair is one exclusive connection to an endpoint together with the handle
// that owns it. A pair is never shared between tasks.
type Pair struct {
	DB   *gorm.DB
	Conn *sql.Conn
}

// Close releases the connection and its handle.
func (p *Pair) Close() error {
	if p == nil {
		return nil
	}
	var first error
	if p.Conn != nil {
		first = p.Conn.Close()
	}
	if p.DB != nil {
		sqlDB, err := p.DB.DB()
		if err == nil {
			if cerr := sqlDB.Close(); cerr != nil && first == nil {
				first = cerr
			}
		}
	}
	return first
}

// Connector opens fresh connection pairs to the configured source and target.
type Connector struct {
	cfg Config
	log *zap.Logger
}

// NewConnector creates a connector for cfg.
func NewConnector(cfg Config, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{cfg: cfg, log: log}
}

// Engine returns the configured engine identifier.
func (c *Connector) Engine() string {
	return c.cfg.Engine
}

// Source opens a new pair to the source database.
func (c *Connector) Source(ctx context.Context) (*Pair, error) {
	return c.open(ctx, c.cfg.Source)
}

// Target opens a new pair to the target database.
func (c *Connector) Target(ctx context.Context) (*Pair, error) {
	return c.open(ctx, c.cfg.Target)
}

func (c *Connector) open(ctx context.Context, ep Endpoint) (*Pair, error) {
	db, err := Connect(c.cfg, ep)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to acquire connection to %s: %w", endpointLabel(ep), err)
	}

	c.log.Debug("Opened database connection", zap.String("endpoint", endpointLabel(ep)))
	return &Pair{DB: db, Conn: conn}, nil
}

package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/paraglidehq/snowflake"
)

const (
	// ClockRegressionCode is the SQLSTATE raised by snowflake_next when the
	// database clock reads earlier than the node's last mint.
	ClockRegressionCode pq.ErrorCode = "SFCLK"

	// lockNotAvailable is SQLSTATE 55P03, raised when the session's
	// lock_timeout (set from Backend.Timeout) expires.
	lockNotAvailable pq.ErrorCode = "55P03"

	DefaultTimeout = 5 * time.Second
)

// Backend mints with snowflake_next() in the database installed by Migrate.
// Open pins one pooled connection and configures the node id and epoch on
// it as session settings; every mint then runs on that connection.
type Backend struct {
	DB *sql.DB

	// Timeout bounds Open and each mint round trip, and is the session's
	// lock_timeout. Zero means DefaultTimeout.
	Timeout time.Duration
}

var _ snowflake.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "postgres" }

// Open probes the database for the installed functions and a matching
// epoch, then returns a Provider bound to s.
func (b *Backend) Open(s snowflake.Settings) (snowflake.Provider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout())
	defer cancel()

	cfg, err := GetConfig(ctx, b.DB)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotInstalled, err)
	}
	if cfg.Epoch != s.Epoch {
		return nil, fmt.Errorf("%w: db epoch=%d, app epoch=%d", ErrConfigMismatch, cfg.Epoch, s.Epoch)
	}
	if s.NodeID < 0 || s.NodeID > cfg.NodeMask() {
		return nil, fmt.Errorf("postgres: node %d does not fit in %d bits", s.NodeID, cfg.NodeBits)
	}

	p := &provider{db: b.DB, settings: s, timeout: b.timeout()}
	if err := p.connect(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *Backend) timeout() time.Duration {
	if b.Timeout > 0 {
		return b.Timeout
	}
	return DefaultTimeout
}

// provider mints on one pinned session. A session lost to a broken
// connection is re-established, settings included, on the next mint.
type provider struct {
	mu       sync.Mutex
	db       *sql.DB
	settings snowflake.Settings
	timeout  time.Duration
	conn     *sql.Conn
}

// connect pins a fresh connection and configures the node id, epoch and
// lock_timeout on it.
func (p *provider) connect(ctx context.Context) error {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("postgres: acquire connection: %w", err)
	}
	_, err = conn.ExecContext(ctx,
		`SELECT set_config('snowflake.node_id', $1, false), set_config('snowflake.epoch', $2, false), set_config('lock_timeout', $3, false)`,
		strconv.FormatInt(p.settings.NodeID, 10),
		strconv.FormatInt(p.settings.Epoch, 10),
		strconv.FormatInt(p.timeout.Milliseconds(), 10)+"ms")
	if err != nil {
		conn.Close()
		return fmt.Errorf("postgres: configure session: %w", err)
	}
	p.conn = conn
	return nil
}

func (p *provider) Create() (snowflake.ID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		if err := p.connect(ctx); err != nil {
			return snowflake.Nil, err
		}
	}
	id, err := p.next(ctx)
	if isConnLost(err) {
		p.conn.Close()
		p.conn = nil
		if err := p.connect(ctx); err != nil {
			return snowflake.Nil, err
		}
		id, err = p.next(ctx)
	}
	if err != nil {
		return snowflake.Nil, mapError(err)
	}
	return id, nil
}

func (p *provider) next(ctx context.Context) (snowflake.ID, error) {
	var id int64
	if err := p.conn.QueryRowContext(ctx, `SELECT snowflake_next()`).Scan(&id); err != nil {
		return snowflake.Nil, err
	}
	return snowflake.ID(id), nil
}

func (p *provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func isConnLost(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case ClockRegressionCode:
			regression := &snowflake.ClockRegressionError{}
			if _, serr := fmt.Sscanf(pqErr.Detail, "last=%d now=%d", &regression.Last, &regression.Now); serr != nil {
				return fmt.Errorf("%w: %s", snowflake.ErrClockRegression, pqErr.Detail)
			}
			return regression
		case lockNotAvailable:
			return fmt.Errorf("%w: %w", snowflake.ErrLockUnavailable, err)
		}
	}
	return fmt.Errorf("postgres: snowflake_next: %w", err)
}

// Package postgres installs a database-side implementation of the snowflake
// mint algorithm and exposes it as a snowflake.Backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paraglidehq/snowflake"
)

// Config is the bit layout installed in the database.
type Config struct {
	Epoch        int64
	NodeBits     uint8
	SequenceBits uint8
}

// DefaultConfig mirrors snowflake.Epoch and snowflake.StandardLayout.
func DefaultConfig() Config {
	return Config{
		Epoch:        snowflake.Epoch,
		NodeBits:     snowflake.StandardLayout.NodeBits,
		SequenceBits: snowflake.StandardLayout.SequenceBits,
	}
}

func (c Config) TimeShift() uint8   { return c.NodeBits + c.SequenceBits }
func (c Config) NodeMask() int64    { return 1<<c.NodeBits - 1 }
func (c Config) MaxSequence() int64 { return 1<<c.SequenceBits - 1 }

var (
	ErrConfigMismatch = errors.New("postgres: database config does not match application config")
	ErrNotInstalled   = errors.New("postgres: snowflake functions are not installed")
)

// Migrate idempotently installs the config table, the per-node state table
// and the snowflake functions. A database already migrated with a different
// Config is left untouched and ErrConfigMismatch is returned.
func Migrate(ctx context.Context, db *sql.DB, cfg Config) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _snowflake_config (
			id int PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			epoch bigint NOT NULL,
			node_bits int NOT NULL,
			seq_bits int NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("postgres: create config table: %w", err)
	}

	stored, err := GetConfig(ctx, db)
	switch {
	case err == nil:
		if stored != cfg {
			return fmt.Errorf("%w: db has epoch=%d node_bits=%d seq_bits=%d, app has epoch=%d node_bits=%d seq_bits=%d",
				ErrConfigMismatch, stored.Epoch, stored.NodeBits, stored.SequenceBits, cfg.Epoch, cfg.NodeBits, cfg.SequenceBits)
		}
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.ExecContext(ctx, `INSERT INTO _snowflake_config (epoch, node_bits, seq_bits) VALUES ($1, $2, $3)`,
			cfg.Epoch, cfg.NodeBits, cfg.SequenceBits)
		if err != nil {
			return fmt.Errorf("postgres: insert config: %w", err)
		}
	default:
		return fmt.Errorf("postgres: read config: %w", err)
	}

	if _, err := db.ExecContext(ctx, generateSQL(cfg)); err != nil {
		return fmt.Errorf("postgres: install functions: %w", err)
	}
	return nil
}

// GetConfig reads the layout recorded by Migrate.
func GetConfig(ctx context.Context, db *sql.DB) (Config, error) {
	var cfg Config
	var nodeBits, seqBits int
	err := db.QueryRowContext(ctx, `SELECT epoch, node_bits, seq_bits FROM _snowflake_config`).
		Scan(&cfg.Epoch, &nodeBits, &seqBits)
	if err != nil {
		return cfg, err
	}
	cfg.NodeBits = uint8(nodeBits)
	cfg.SequenceBits = uint8(seqBits)
	return cfg, nil
}

// generateSQL renders the schema for cfg. Arguments:
// 1 epoch, 2 max sequence, 3 time shift, 4 node mask, 5 node shift.
func generateSQL(cfg Config) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS _snowflake_state (
  node_id int PRIMARY KEY,
  last_ms bigint NOT NULL DEFAULT 0,
  seq int NOT NULL DEFAULT 0
);

-- Mint for the node in snowflake.node_id. The row lock on the node's state
-- is the critical section shared by every session minting for that node.
CREATE OR REPLACE FUNCTION snowflake_next()
  RETURNS bigint
  LANGUAGE plpgsql
  VOLATILE
  AS $$
DECLARE
  v_node bigint := current_setting('snowflake.node_id')::bigint;
  v_epoch bigint := current_setting('snowflake.epoch')::bigint;
  v_now bigint;
  v_last bigint;
  v_seq bigint;
BEGIN
  INSERT INTO _snowflake_state (node_id) VALUES (v_node) ON CONFLICT (node_id) DO NOTHING;
  SELECT last_ms, seq INTO v_last, v_seq FROM _snowflake_state WHERE node_id = v_node FOR UPDATE;

  v_now := floor(extract(epoch FROM clock_timestamp()) * 1000)::bigint;
  IF v_now < v_last THEN
    RAISE EXCEPTION 'snowflake: clock moved backwards'
      USING ERRCODE = 'SFCLK', DETAIL = format('last=%%s now=%%s', v_last, v_now);
  END IF;

  IF v_now = v_last THEN
    v_seq := v_seq + 1;
    IF v_seq > %[2]d THEN
      v_seq := 0;
      WHILE v_now <= v_last LOOP
        v_now := floor(extract(epoch FROM clock_timestamp()) * 1000)::bigint;
      END LOOP;
    END IF;
  ELSE
    v_seq := 0;
  END IF;

  UPDATE _snowflake_state SET last_ms = v_now, seq = v_seq WHERE node_id = v_node;
  RETURN ((v_now - v_epoch) << %[3]d) | ((v_node & %[4]d) << %[5]d) | v_seq;
END;
$$;

CREATE OR REPLACE FUNCTION ts_from_snowflake(id bigint)
  RETURNS timestamptz
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT to_timestamp(((id >> %[3]d) + %[1]d)::numeric / 1000);
$$;

CREATE OR REPLACE FUNCTION node_from_snowflake(id bigint)
  RETURNS int
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT ((id >> %[5]d) & %[4]d)::int;
$$;

CREATE OR REPLACE FUNCTION seq_from_snowflake(id bigint)
  RETURNS int
  LANGUAGE sql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
  SELECT (id & %[2]d)::int;
$$;

CREATE OR REPLACE FUNCTION snowflake_to_b58(id bigint)
  RETURNS text
  LANGUAGE plpgsql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
DECLARE
  alphabet text := '123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz';
  encoded text := '';
BEGIN
  IF id = 0 THEN
    RETURN '1';
  END IF;
  WHILE id > 0 LOOP
    encoded := substr(alphabet, (id %% 58)::int + 1, 1) || encoded;
    id := id / 58;
  END LOOP;
  RETURN encoded;
END;
$$;

CREATE OR REPLACE FUNCTION b58_to_snowflake(encoded text)
  RETURNS bigint
  LANGUAGE plpgsql
  IMMUTABLE PARALLEL SAFE STRICT LEAKPROOF
  AS $$
DECLARE
  alphabet text := '123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz';
  digit int;
  result bigint := 0;
BEGIN
  FOR i IN 1..length(encoded) LOOP
    digit := strpos(alphabet, substr(encoded, i, 1));
    IF digit = 0 THEN
      RAISE EXCEPTION 'invalid base58 character: %%', substr(encoded, i, 1);
    END IF;
    result := result * 58 + (digit - 1);
  END LOOP;
  RETURN result;
END;
$$;
`,
		cfg.Epoch,
		cfg.MaxSequence(),
		cfg.TimeShift(),
		cfg.NodeMask(),
		cfg.SequenceBits,
	)
}

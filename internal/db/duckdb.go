// Package db keeps a DuckDB catalog of the registry's layers so their
// attributes can be queried with SQL.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/plat-geoview/internal/geo"
	"github.com/joeblew999/plat-geoview/internal/logger"
)

// Config holds database configuration.
type Config struct {
	// Path of the database file. Empty keeps the catalog in memory.
	Path string
	// Extensions are installed and loaded after opening. Failures are
	// logged and ignored.
	Extensions []string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS layers (
		id VARCHAR PRIMARY KEY,
		name VARCHAR,
		color VARCHAR,
		visible BOOLEAN,
		split_property VARCHAR,
		features INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS features (
		layer_id VARCHAR,
		idx INTEGER,
		feature_id VARCHAR,
		geometry_type VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS attributes (
		layer_id VARCHAR,
		idx INTEGER,
		attr VARCHAR,
		kind VARCHAR,
		value_text VARCHAR,
		value_number DOUBLE
	)`,
}

// Catalog is a DuckDB database holding one row per layer, one per feature and
// one per feature attribute.
type Catalog struct {
	db *sql.DB
}

// Open opens the catalog and creates its tables.
func Open(cfg Config) (*Catalog, error) {
	conn, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	for _, ext := range cfg.Extensions {
		if _, err := conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			logger.L().Debug("duckdb extension unavailable", "extension", ext, "error", err)
		}
	}

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("create catalog schema: %w", err)
		}
	}
	return &Catalog{db: conn}, nil
}

// DB exposes the underlying connection pool.
func (c *Catalog) DB() *sql.DB { return c.db }

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// LayerRow is the catalog's view of a layer.
type LayerRow struct {
	ID            string
	Name          string
	Color         string
	Visible       bool
	SplitProperty string
	Collection    *geo.FeatureCollection
}

// Put replaces everything stored for the layer.
func (c *Catalog) Put(ctx context.Context, l LayerRow) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Deleting and reinserting a primary key in one transaction trips
	// DuckDB's unique check, so the layer row is replaced in place.
	if err := deleteFeatures(ctx, tx, l.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO layers VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Color, l.Visible, l.SplitProperty, l.Collection.Len(),
	); err != nil {
		return fmt.Errorf("insert layer %s: %w", l.ID, err)
	}

	featStmt, err := tx.PrepareContext(ctx, `INSERT INTO features VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare features: %w", err)
	}
	defer featStmt.Close()
	attrStmt, err := tx.PrepareContext(ctx, `INSERT INTO attributes VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare attributes: %w", err)
	}
	defer attrStmt.Close()

	if l.Collection != nil {
		for i, f := range l.Collection.Features {
			if _, err := featStmt.ExecContext(ctx, l.ID, i, f.ID, f.GeometryType()); err != nil {
				return fmt.Errorf("insert feature %d of %s: %w", i, l.ID, err)
			}
			for _, key := range f.Properties.Keys() {
				v := f.Properties[key]
				text, number := columns(v)
				if _, err := attrStmt.ExecContext(ctx, l.ID, i, key, v.Kind().String(), text, number); err != nil {
					return fmt.Errorf("insert attribute %s of %s: %w", key, l.ID, err)
				}
			}
		}
	}
	return tx.Commit()
}

// Update rewrites the mutable columns of a stored layer.
func (c *Catalog) Update(ctx context.Context, id string, visible bool, splitProperty string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE layers SET visible = ?, split_property = ? WHERE id = ?`,
		visible, splitProperty, id)
	if err != nil {
		return fmt.Errorf("update layer %s: %w", id, err)
	}
	return nil
}

// Delete removes everything stored for the layer.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFeatures(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM layers WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete layer %s: %w", id, err)
	}
	return tx.Commit()
}

func deleteFeatures(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range []string{"attributes", "features"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE layer_id = ?", id); err != nil {
			return fmt.Errorf("delete %s of %s: %w", table, id, err)
		}
	}
	return nil
}

// columns maps a value onto the nullable text and number columns.
func columns(v geo.Value) (text, number any) {
	switch v.Kind() {
	case geo.KindNull:
		return nil, nil
	case geo.KindNumber:
		n, _ := v.Num()
		return v.String(), n
	default:
		return v.String(), nil
	}
}

// Tables lists the catalog's tables.
func (c *Catalog) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Result is a fully read query result.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Query runs a read query and collects every row.
func (c *Catalog) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	res := &Result{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}

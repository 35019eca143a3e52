// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package labdb holds types to describe the lab database tracking
// volume presets, registered boards and bundle deployments.
package labdb // import "github.com/fruitjam/tlv320/labdb"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var (
	host = envOr("CPY_DB_HOST", "localhost")
	usr  = envOr("CPY_DB_USER", "fruitjam")
	pwd  = envOr("CPY_DB_PASSWORD", "s3cr3t")

	drvName = "mysql"
)

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// DB exposes convenience methods to retrieve and record configuration
// data in the lab database.
type DB struct {
	db   *sql.DB
	name string
}

// Open opens a connection to the lab database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("labdb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("labdb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("labdb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// Preset is a named volume configuration row.
type Preset struct {
	Name              string
	DACVolumeDB       float64
	HeadphoneVolumeDB float64
	LineLevel         bool
}

// Board is a registered development board.
type Board struct {
	Serial string
	Name   string
	MCU    string
}

// Deploy records one bundle synchronization onto a board volume.
type Deploy struct {
	ID      string // deploy UUID
	Board   string // board serial, may be empty
	Profile string
	Bundle  string // bundle build UUID
	Files   int
	Bytes   int64
	Host    string
	Machine string // host machine id
	Created time.Time
}

// Presets returns all volume presets.
func (db *DB) Presets(ctx context.Context) ([]Preset, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ps []Preset
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name, dac_db, hp_db, line_level FROM presets ORDER BY name",
	)
	if err != nil {
		return ps, fmt.Errorf("labdb: could not query presets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Preset
		err = rows.Scan(&p.Name, &p.DACVolumeDB, &p.HeadphoneVolumeDB, &p.LineLevel)
		if err != nil {
			return ps, fmt.Errorf("labdb: could not scan preset: %w", err)
		}
		ps = append(ps, p)
	}

	if err := rows.Err(); err != nil {
		return ps, fmt.Errorf("labdb: could not scan db for presets: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return ps, fmt.Errorf("labdb: context error while retrieving presets: %w", err)
	}

	return ps, nil
}

// Boards returns all registered boards.
func (db *DB) Boards(ctx context.Context) ([]Board, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var bs []Board
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT serial, name, mcu FROM boards ORDER BY serial",
	)
	if err != nil {
		return bs, fmt.Errorf("labdb: could not query boards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b Board
		err = rows.Scan(&b.Serial, &b.Name, &b.MCU)
		if err != nil {
			return bs, fmt.Errorf("labdb: could not scan board: %w", err)
		}
		bs = append(bs, b)
	}

	if err := rows.Err(); err != nil {
		return bs, fmt.Errorf("labdb: could not scan db for boards: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return bs, fmt.Errorf("labdb: context error while retrieving boards: %w", err)
	}

	return bs, nil
}

// LastDeploys returns the n most recent deployments, newest first.
func (db *DB) LastDeploys(ctx context.Context, n int) ([]Deploy, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ds []Deploy
	rows, err := db.db.QueryContext(
		ctx,
		`SELECT id, board, profile, bundle, files, bytes, host, machine, created
FROM deploys ORDER BY created DESC LIMIT ?`,
		n,
	)
	if err != nil {
		return ds, fmt.Errorf("labdb: could not query deploys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d Deploy
		err = rows.Scan(
			&d.ID, &d.Board, &d.Profile, &d.Bundle,
			&d.Files, &d.Bytes, &d.Host, &d.Machine, &d.Created,
		)
		if err != nil {
			return ds, fmt.Errorf("labdb: could not scan deploy: %w", err)
		}
		ds = append(ds, d)
	}

	if err := rows.Err(); err != nil {
		return ds, fmt.Errorf("labdb: could not scan db for deploys: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return ds, fmt.Errorf("labdb: context error while retrieving deploys: %w", err)
	}

	return ds, nil
}

// RecordDeploy inserts a deployment row.
func (db *DB) RecordDeploy(ctx context.Context, d Deploy) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx,
		`INSERT INTO deploys (id, board, profile, bundle, files, bytes, host, machine, created)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Board, d.Profile, d.Bundle,
		d.Files, d.Bytes, d.Host, d.Machine, d.Created,
	)
	if err != nil {
		return fmt.Errorf("labdb: could not record deploy %q: %w", d.ID, err)
	}
	return nil
}

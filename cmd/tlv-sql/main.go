// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tlv-sql inspects the lab database: volume presets, registered
// boards and the most recent bundle deployments.
//
// Usage: tlv-sql [OPTIONS]
//
// Example:
//
//	$> tlv-sql
//	$> tlv-sql -db labjam -n 5
package main // import "github.com/fruitjam/tlv320/cmd/tlv-sql"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/fruitjam/tlv320/labdb"
)

func main() {
	log.SetPrefix("tlv-sql: ")
	log.SetFlags(0)

	var (
		dbname = flag.String("db", "labjam", "lab database to inspect")
		n      = flag.Int("n", 10, "number of recent deploys to list")
	)

	flag.Usage = func() {
		fmt.Printf(`tlv-sql inspects the lab database: volume presets, registered boards
and the most recent bundle deployments.

Usage: tlv-sql [OPTIONS]

Example:

 $> tlv-sql
 $> tlv-sql -db labjam -n 5

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	db, err := labdb.Open(*dbname)
	if err != nil {
		log.Fatalf("could not open lab db: %+v", err)
	}
	defer db.Close()

	err = doQuery(db, *n)
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

func doQuery(db *labdb.DB, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	presets, err := db.Presets(ctx)
	if err != nil {
		return fmt.Errorf("could not get presets: %w", err)
	}
	log.Printf("presets: %d", len(presets))
	for _, p := range presets {
		log.Printf(">>> %-12s dac=%+6.1f dB, hp=%+6.1f dB, line-level=%v",
			p.Name, p.DACVolumeDB, p.HeadphoneVolumeDB, p.LineLevel,
		)
	}

	boards, err := db.Boards(ctx)
	if err != nil {
		return fmt.Errorf("could not get boards: %w", err)
	}
	log.Printf("boards: %d", len(boards))
	for _, b := range boards {
		log.Printf(">>> %-10s %-20s mcu=%s", b.Serial, b.Name, b.MCU)
	}

	deploys, err := db.LastDeploys(ctx, n)
	if err != nil {
		return fmt.Errorf("could not get last %d deploys: %w", n, err)
	}
	log.Printf("deploys: %d", len(deploys))
	for _, d := range deploys {
		log.Printf(">>> %s %s profile=%q files=%d bytes=%d host=%s",
			d.Created.Format(time.RFC3339), d.ID, d.Profile, d.Files, d.Bytes, d.Host,
		)
	}

	return nil
}

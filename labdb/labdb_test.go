// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package labdb

import (
	"context"
	"database/sql/driver"
	"reflect"
	"testing"
	"time"

	"github.com/fruitjam/tlv320/internal/fakedb"
)

func init() {
	drvName = "fakedb"
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open labdb: %+v", err)
	}
	defer db.Close()
}

func TestPresets(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open labdb: %+v", err)
	}
	defer db.Close()

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"name", "dac_db", "hp_db", "line_level"},
		Values: [][]driver.Value{
			{"headphone", -58.0, -64.0, false},
			{"line", -44.0, -64.0, true},
		},
	}, func(ctx context.Context) error {
		ps, err := db.Presets(ctx)
		if err != nil {
			t.Fatalf("could not retrieve presets: %+v", err)
		}

		want := []Preset{
			{Name: "headphone", DACVolumeDB: -58, HeadphoneVolumeDB: -64},
			{Name: "line", DACVolumeDB: -44, HeadphoneVolumeDB: -64, LineLevel: true},
		}
		if got := ps; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid presets:\ngot= %+v\nwant=%+v", got, want)
		}
		return nil
	})
}

func TestBoards(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open labdb: %+v", err)
	}
	defer db.Close()

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"serial", "name", "mcu"},
		Values: [][]driver.Value{
			{"FJ-0042", "bench jam", "rp2350"},
		},
	}, func(ctx context.Context) error {
		bs, err := db.Boards(ctx)
		if err != nil {
			t.Fatalf("could not retrieve boards: %+v", err)
		}

		want := []Board{{Serial: "FJ-0042", Name: "bench jam", MCU: "rp2350"}}
		if got := bs; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid boards:\ngot= %+v\nwant=%+v", got, want)
		}
		return nil
	})
}

func TestLastDeploys(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open labdb: %+v", err)
	}
	defer db.Close()

	created := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"id", "board", "profile", "bundle", "files", "bytes", "host", "machine", "created"},
		Values: [][]driver.Value{
			{"d-1", "FJ-0042", "default", "b-1", int64(12), int64(34567), "bench", "m-1", created},
		},
	}, func(ctx context.Context) error {
		ds, err := db.LastDeploys(ctx, 10)
		if err != nil {
			t.Fatalf("could not retrieve deploys: %+v", err)
		}

		want := []Deploy{{
			ID: "d-1", Board: "FJ-0042", Profile: "default", Bundle: "b-1",
			Files: 12, Bytes: 34567, Host: "bench", Machine: "m-1",
			Created: created,
		}}
		if got := ds; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid deploys:\ngot= %+v\nwant=%+v", got, want)
		}
		return nil
	})
}

func TestRecordDeploy(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open labdb: %+v", err)
	}
	defer db.Close()

	_ = fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		err := db.RecordDeploy(ctx, Deploy{
			ID:      "d-2",
			Profile: "tlv-test",
			Bundle:  "b-2",
			Files:   3,
			Bytes:   1024,
			Host:    "bench",
			Machine: "m-1",
			Created: time.Date(2025, 8, 2, 9, 30, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("could not record deploy: %+v", err)
		}

		execs := fakedb.Execs()
		if got, want := len(execs), 1; got != want {
			t.Fatalf("invalid exec count: got=%d, want=%d", got, want)
		}
		if got, want := execs[0][0], driver.Value("d-2"); got != want {
			t.Fatalf("invalid deploy id: got=%v, want=%v", got, want)
		}
		return nil
	})
}

package configdb

import (
	"github.com/BurntSushi/migration"
	"github.com/tallycam/tallycam/pkg/dbh"
	"github.com/tallycam/tallycam/pkg/log"
)

func Migrations(log log.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE settings(
			id INTEGER PRIMARY KEY,
			video_source TEXT NOT NULL,
			frame_rate INT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL,
			score_threshold REAL NOT NULL,
			iou_threshold REAL NOT NULL,
			tracking_threshold REAL NOT NULL,
			inside_direction TEXT NOT NULL,
			door_defined INT NOT NULL,
			door_x1 INT NOT NULL,
			door_y1 INT NOT NULL,
			door_x2 INT NOT NULL,
			door_y2 INT NOT NULL
		);

	`))

	return migs
}

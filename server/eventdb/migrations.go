package eventdb

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
		CREATE TABLE count_log(
			id INTEGER PRIMARY KEY,
			time INT NOT NULL,
			entries INT NOT NULL,
			exits INT NOT NULL,
			people_in_room INT NOT NULL
		);
		CREATE INDEX idx_count_log_time ON count_log (time);

		CREATE TABLE alert(
			id INTEGER PRIMARY KEY,
			time INT NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			severity TEXT NOT NULL,
			acknowledged INT NOT NULL DEFAULT 0
		);
		CREATE INDEX idx_alert_time ON alert (time);

		CREATE TABLE health_sample(
			id INTEGER PRIMARY KEY,
			time INT NOT NULL,
			cpu REAL NOT NULL,
			memory REAL NOT NULL,
			disk REAL NOT NULL,
			temperature REAL,
			fps REAL NOT NULL
		);
		CREATE INDEX idx_health_sample_time ON health_sample (time);

	`))

	return migs
}

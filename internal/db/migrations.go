package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS people (
		id              BIGSERIAL PRIMARY KEY,
		name            TEXT NOT NULL,
		age             INT NOT NULL,
		control_number  TEXT NOT NULL,
		email           TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'Authorized',
		incident_count  INT NOT NULL DEFAULT 0,
		profile_id      BIGINT REFERENCES profiles(id) ON DELETE SET NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_people_control_number ON people(control_number);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_people_email ON people(email);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id          BIGSERIAL PRIMARY KEY,
		plate       TEXT NOT NULL,
		brand       TEXT NOT NULL,
		model       TEXT NOT NULL,
		color       TEXT NOT NULL,
		owner_id    BIGINT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_vehicles_plate ON vehicles(plate);`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id                  BIGSERIAL PRIMARY KEY,
		description         TEXT NOT NULL,
		date                TEXT NOT NULL,
		time                TEXT,
		image_refs          JSONB,
		status              TEXT NOT NULL DEFAULT 'Pending',
		latitude            TEXT,
		longitude           TEXT,
		affected_person_id  BIGINT NOT NULL,
		reporter_id         BIGINT NOT NULL,
		vehicle_id          BIGINT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_reporter_id ON incidents(reporter_id);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_affected_person_id ON incidents(affected_person_id);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM profiles WHERE name = 'User') THEN
			INSERT INTO profiles (name, description) VALUES ('User', 'Sees only incidents they reported');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM profiles WHERE name = 'Administrator') THEN
			INSERT INTO profiles (name, description) VALUES ('Administrator', 'Sees all incidents');
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

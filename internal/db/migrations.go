package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'mineral_type') THEN
			CREATE TYPE mineral_type AS ENUM ('complex', 'concentrate');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'operation_type') THEN
			CREATE TYPE operation_type AS ENUM ('direct_sale', 'plant_processing');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'lot_status') THEN
			CREATE TYPE lot_status AS ENUM (
				'draft', 'waiting_to_start', 'en_route_to_mine', 'loading',
				'en_route_to_coop_scale', 'en_route_to_processor_scale',
				'en_route_to_trader_scale', 'en_route_to_plant',
				'en_route_to_warehouse', 'completed', 'cancelled');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'assignment_state') THEN
			CREATE TYPE assignment_state AS ENUM (
				'waiting_to_start', 'waiting_to_start_trip', 'en_route_to_mine',
				'waiting_for_loading', 'en_route_to_coop_scale',
				'en_route_to_processor_scale', 'en_route_to_trader_scale',
				'en_route_to_plant', 'en_route_to_warehouse',
				'trip_finished', 'trip_cancelled');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'weighing_type') THEN
			CREATE TYPE weighing_type AS ENUM ('origin_scale', 'processor_scale', 'trader_scale');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'control_point_kind') THEN
			CREATE TYPE control_point_kind AS ENUM (
				'mine', 'coop_scale', 'processor_scale', 'trader_scale', 'plant', 'warehouse');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'zone_shape') THEN
			CREATE TYPE zone_shape AS ENUM ('polygon', 'circle');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS shipment_lots (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		cooperative_id UUID NOT NULL,
		mine_id UUID NOT NULL,
		destination_id UUID NOT NULL,
		mineral_type mineral_type NOT NULL,
		operation_type operation_type NOT NULL,
		requested_trucks INTEGER NOT NULL,
		status lot_status NOT NULL DEFAULT 'draft',
		total_net_weight_kg NUMERIC(18,3),
		notes TEXT,
		created_by_user_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_shipment_lots_cooperative ON shipment_lots (cooperative_id);`,
	`CREATE TABLE IF NOT EXISTS truck_assignments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		lot_id UUID NOT NULL REFERENCES shipment_lots(id),
		carrier_id UUID NOT NULL,
		driver_id UUID NOT NULL,
		truck_number INTEGER NOT NULL,
		state assignment_state NOT NULL,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_truck_assignments_lot ON truck_assignments (lot_id);`,
	`CREATE INDEX IF NOT EXISTS idx_truck_assignments_carrier ON truck_assignments (carrier_id);`,
	`CREATE INDEX IF NOT EXISTS idx_truck_assignments_driver ON truck_assignments (driver_id);`,
	`CREATE TABLE IF NOT EXISTS weighing_records (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		assignment_id UUID NOT NULL REFERENCES truck_assignments(id),
		type weighing_type NOT NULL,
		gross_kg NUMERIC(18,3) NOT NULL CHECK (gross_kg > 0),
		tare_kg NUMERIC(18,3) NOT NULL CHECK (tare_kg >= 0),
		net_kg NUMERIC(18,3) NOT NULL CHECK (net_kg >= 0),
		notes TEXT,
		registered_by_user_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_weighing_assignment_type ON weighing_records (assignment_id, type);`,
	`CREATE TABLE IF NOT EXISTS geofence_zones (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		lot_id UUID NOT NULL REFERENCES shipment_lots(id),
		kind control_point_kind NOT NULL,
		name VARCHAR(255),
		shape zone_shape NOT NULL,
		vertices JSONB,
		center_lat DOUBLE PRECISION,
		center_lng DOUBLE PRECISION,
		radius_m DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_geofence_zones_lot ON geofence_zones (lot_id);`,
	`CREATE OR REPLACE FUNCTION set_updated_at() RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_shipment_lots_updated_at') THEN
			CREATE TRIGGER trg_shipment_lots_updated_at
				BEFORE UPDATE ON shipment_lots
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_truck_assignments_updated_at') THEN
			CREATE TRIGGER trg_truck_assignments_updated_at
				BEFORE UPDATE ON truck_assignments
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_geofence_zones_updated_at') THEN
			CREATE TRIGGER trg_geofence_zones_updated_at
				BEFORE UPDATE ON geofence_zones
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
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

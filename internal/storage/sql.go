package storage

// Statements use ? placeholders and are rebound per dialect.
const (
	insertPointSQL = `
INSERT INTO flight_data (file_name,
                         lat,
                         lon,
                         alt,
                         heading)
VALUES (?, ?, ?, ?, ?)`

	selectPointsSQL = `
SELECT
    id,
    file_name,
    lat,
    lon,
    alt,
    heading
FROM flight_data`

	selectFilesSQL = `
SELECT
    file_name,
    COUNT(*) AS data_points,
    MIN(id)  AS first_id,
    MAX(id)  AS last_id
FROM flight_data
GROUP BY file_name
ORDER BY file_name`
)

var duckdbSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS flight_data_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS flight_data (
    id        BIGINT PRIMARY KEY DEFAULT nextval('flight_data_id_seq'),
    file_name VARCHAR NOT NULL,
    lat       DOUBLE  NOT NULL,
    lon       DOUBLE  NOT NULL,
    alt       DOUBLE  NOT NULL,
    heading   DOUBLE
)`,
	`CREATE INDEX IF NOT EXISTS idx_flight_data_file_name ON flight_data (file_name)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS flight_data (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    file_name TEXT NOT NULL,
    lat       REAL NOT NULL,
    lon       REAL NOT NULL,
    alt       REAL NOT NULL,
    heading   REAL
)`,
	`CREATE INDEX IF NOT EXISTS idx_flight_data_file_name ON flight_data (file_name)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS flight_data (
    id        BIGSERIAL PRIMARY KEY,
    file_name TEXT NOT NULL,
    lat       DOUBLE PRECISION NOT NULL,
    lon       DOUBLE PRECISION NOT NULL,
    alt       DOUBLE PRECISION NOT NULL,
    heading   DOUBLE PRECISION
)`,
	`CREATE INDEX IF NOT EXISTS idx_flight_data_file_name ON flight_data (file_name)`,
}

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlog-viewer/backend/internal/models"
)

func newMockPostgres(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "postgres")), mock
}

const copyPattern = `COPY "flight_data" \("file_name", "lat", "lon", "alt", "heading"\) FROM STDIN`

func TestPostgresCommitBatch(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(sqlmock.Sqlmock)
		wantN     int
		wantErr   bool
	}{
		{
			name: "copies every sample then commits",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				prep := mock.ExpectPrepare(copyPattern)
				prep.ExpectExec().WithArgs("a.tlog", 47.397742, 8.540589, 152.3, 90.0).WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().WithArgs("a.tlog", 47.397743, 8.54059, 152.4, nil).WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().WithArgs("a.tlog", -33.8688, 151.2093, -4.2, 359.99).WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectCommit()
			},
			wantN: 3,
		},
		{
			name: "row failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				prep := mock.ExpectPrepare(copyPattern)
				prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().WillReturnError(errors.New("invalid input syntax"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "commit failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				prep := mock.ExpectPrepare(copyPattern)
				for i := 0; i < 4; i++ {
					prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
				}
				mock.ExpectCommit().WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
		{
			name: "begin failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockPostgres(t)
			tt.setupMock(mock)

			n, err := s.CommitBatch(context.Background(), "a.tlog", testSamples())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 0, n)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantN, n)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresEmptyBatchSkipsDatabase(t *testing.T) {
	s, mock := newMockPostgres(t)

	n, err := s.CommitBatch(context.Background(), "a.tlog", []models.Sample{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQuery(t *testing.T) {
	s, mock := newMockPostgres(t)

	rows := sqlmock.NewRows([]string{"id", "file_name", "lat", "lon", "alt", "heading"}).
		AddRow(int64(7), "a.tlog", 47.397742, 8.540589, 152.3, 90.0).
		AddRow(int64(8), "a.tlog", 47.397743, 8.54059, 152.4, nil)
	mock.ExpectQuery(`SELECT .* FROM flight_data\s+WHERE file_name = \$1\s+ORDER BY id\s+LIMIT \$2 OFFSET \$3`).
		WithArgs("a.tlog", int64(2), 10).
		WillReturnRows(rows)

	points, err := s.Query(context.Background(), models.FlightDataQuery{FileName: "a.tlog", Limit: 2, Offset: 10})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(7), points[0].ID)
	require.NotNil(t, points[0].Heading)
	assert.Equal(t, 90.0, *points[0].Heading)
	assert.Nil(t, points[1].Heading)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFiles(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT\s+file_name,\s+COUNT\(\*\) AS data_points`).
		WillReturnRows(sqlmock.NewRows([]string{"file_name", "data_points", "first_id", "last_id"}).
			AddRow("a.tlog", int64(3), int64(1), int64(3)))

	files, err := s.Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.FileSummary{{FileName: "a.tlog", DataPoints: 3, FirstID: 1, LastID: 3}}, files)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueryError(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("relation does not exist"))

	_, err := s.Query(context.Background(), models.FlightDataQuery{})
	assert.ErrorContains(t, err, "relation does not exist")
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS flight_data`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_flight_data_file_name`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, s.migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

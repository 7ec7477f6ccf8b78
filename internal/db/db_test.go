package db

import (
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsAppliesAll(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()

	for range migrations {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, runMigrations(sqlx.NewDb(sqldb, "postgres")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsStopsOnError(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))

	require.Error(t, runMigrations(sqlx.NewDb(sqldb, "postgres")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationsStoreReactionsAsOrderedJSON(t *testing.T) {
	var messages, notifications string
	for _, m := range migrations {
		switch {
		case strings.Contains(m, "CREATE TABLE IF NOT EXISTS messages"):
			messages = m
		case strings.Contains(m, "CREATE TABLE IF NOT EXISTS notifications"):
			notifications = m
		}
	}

	require.Regexp(t, `reactions JSON NOT NULL`, messages)
	require.Regexp(t, `formatting JSON NOT NULL`, messages)
	require.Regexp(t, `reactions JSON NOT NULL`, notifications)
	require.Regexp(t, `read_by JSONB`, notifications)

	var alters []string
	for _, m := range migrations {
		if strings.HasPrefix(m, "ALTER TABLE") {
			alters = append(alters, m)
		}
	}
	require.Len(t, alters, 3)
	for _, a := range alters {
		require.Contains(t, a, "TYPE JSON USING")
	}
}

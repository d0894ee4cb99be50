package db_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"statsync/internal/db"
	"statsync/internal/models"
	"statsync/internal/test"
)

func TestReplaceDemographicsDeletesBeforeInsert(t *testing.T) {
	_, mock := test.NewMockDB(t)

	// 4 rows exist; the provider now reports only 2. The old set must be
	// gone before the new one lands.
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM audience_demographics WHERE channel_id = \$1`).
		WithArgs("UC123").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`INSERT INTO audience_demographics`).
		WithArgs("UC123", "age18-24", "female", 40.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO audience_demographics`).
		WithArgs("UC123", "age18-24", "male", 60.0).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := db.ReplaceDemographics("UC123", []models.AudienceDemographic{
		{ChannelID: "UC123", AgeGroup: "age18-24", Gender: "female", ViewerPercentage: 40.0},
		{ChannelID: "UC123", AgeGroup: "age18-24", Gender: "male", ViewerPercentage: 60.0},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceDemographicsRollsBackOnInsertFailure(t *testing.T) {
	_, mock := test.NewMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM audience_demographics`).
		WithArgs("UC123").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`INSERT INTO audience_demographics`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := db.ReplaceDemographics("UC123", []models.AudienceDemographic{
		{ChannelID: "UC123", AgeGroup: "age18-24", Gender: "female", ViewerPercentage: 40.0},
	})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceDemographicsEmptySetClearsChannel(t *testing.T) {
	_, mock := test.NewMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM audience_demographics`).
		WithArgs("UC123").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := db.ReplaceDemographics("UC123", nil)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagovapi/models"
)

func TestIssueRepository_GetLatestByColumnAndRule(t *testing.T) {
	gdb, mock := mockDB(t)
	repo := &issueRepository{}

	rows := sqlmock.NewRows([]string{"id", "column_id", "rule_id", "severity", "status"}).
		AddRow(7, 42, 3, "critical", models.IssueOpen)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `issue` WHERE column_id = ? AND rule_id = ?")).
		WithArgs(uint(42), uint(3), 1).
		WillReturnRows(rows)

	issue, err := repo.GetLatestByColumnAndRule(gdb, 42, 3)
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, uint(7), issue.ID)
	assert.Equal(t, models.IssueOpen, issue.Status)
}

func TestIssueRepository_GetLatestByColumnAndRule_NoneIsNotAnError(t *testing.T) {
	gdb, mock := mockDB(t)
	repo := &issueRepository{}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `issue` WHERE column_id = ? AND rule_id = ?")).
		WithArgs(uint(42), uint(3), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	issue, err := repo.GetLatestByColumnAndRule(gdb, 42, 3)
	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestIssueRepository_GetByColumn(t *testing.T) {
	gdb, mock := mockDB(t)
	repo := &issueRepository{}

	rows := sqlmock.NewRows([]string{"id", "column_id", "rule_id", "status"}).
		AddRow(1, 42, 3, models.IssueResolved).
		AddRow(2, 42, 5, models.IssueOpen)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `issue` WHERE column_id = ?")).
		WithArgs(uint(42)).
		WillReturnRows(rows)

	issues, err := repo.GetByColumn(gdb, 42)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, uint(5), issues[1].RuleID)
}

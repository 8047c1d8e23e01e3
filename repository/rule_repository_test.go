package repository

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// mockDB returns a GORM handle backed by sqlmock. Repositories take the handle
// through their tx parameter so no global connection is needed.
func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return gdb, mock
}

func TestRuleRepository_GetEnabled(t *testing.T) {
	gdb, mock := mockDB(t)
	repo := &ruleRepository{}

	rows := sqlmock.NewRows([]string{"id", "category", "tier", "hints", "enabled", "version"}).
		AddRow(1, "email", "high", "email, e_mail", true, 1).
		AddRow(3, "payment_card", "critical", "card, cc, pan", true, 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `rule_definition` WHERE enabled = ?")).
		WithArgs(true).
		WillReturnRows(rows)

	rules, err := repo.GetEnabled(gdb)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "email", rules[0].Category)
	assert.Equal(t, uint(3), rules[1].ID)
	assert.Equal(t, 2, rules[1].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_GetByID_NotFound(t *testing.T) {
	gdb, mock := mockDB(t)
	repo := &ruleRepository{}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `rule_definition` WHERE id = ?")).
		WithArgs(uint(42), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(gdb, 42)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRuleRepository_GetByCategory(t *testing.T) {
	gdb, mock := mockDB(t)
	repo := &ruleRepository{}

	rows := sqlmock.NewRows([]string{"id", "category", "enabled"}).
		AddRow(5, "phone", true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `rule_definition` WHERE category = ?")).
		WithArgs("phone", 1).
		WillReturnRows(rows)

	rule, err := repo.GetByCategory(gdb, "phone")
	require.NoError(t, err)
	assert.Equal(t, uint(5), rule.ID)
}

func TestRuleRepository_Count(t *testing.T) {
	gdb, mock := mockDB(t)
	repo := &ruleRepository{}

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `rule_definition`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))

	count, err := repo.Count(gdb)
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (s *StoreTestSuite) SetupTest() {
	st, err := New(":memory:")
	require.NoError(s.T(), err, "failed to create test store")
	s.store = st
	s.ctx = context.Background()
}

func (s *StoreTestSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *StoreTestSuite) testUser() User {
	return User{
		ID:           "1700000000000",
		Name:         "Nguyễn Văn A",
		Email:        "a@example.com",
		Username:     "nguyenvana",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		MonthlyLimit: 2_000_000,
		Expenses: []Expense{
			{ID: 1, Category: "an_uong", Amount: 150_000, Date: "2026-08-01"},
		},
		Categories: RegistrationCategories(),
	}
}

func (s *StoreTestSuite) TestSaveUserRoundTrip() {
	user := s.testUser()
	require.NoError(s.T(), s.store.SaveUser(s.ctx, user, false))

	users, _ := s.store.LoadAll(s.ctx)
	require.Contains(s.T(), users, user.ID)
	assert.Equal(s.T(), user, users[user.ID], "round-tripped user must match field for field")
}

func (s *StoreTestSuite) TestLoadAllEmptyStore() {
	users, theme := s.store.LoadAll(s.ctx)
	assert.Empty(s.T(), users)
	assert.True(s.T(), theme.IsZero())
}

func (s *StoreTestSuite) TestLoadAllCorruptRecordsDegradeToEmpty() {
	rec := Record{Key: KeyUsers, Value: []byte("{not json"), Version: 1}
	require.NoError(s.T(), s.store.db.Create(&rec).Error)
	rec2 := Record{Key: KeyTheme, Value: []byte("[oops"), Version: 1}
	require.NoError(s.T(), s.store.db.Create(&rec2).Error)

	users, theme := s.store.LoadAll(s.ctx)
	assert.Empty(s.T(), users)
	assert.True(s.T(), theme.IsZero())

	// A write after the degraded read must still succeed.
	assert.NoError(s.T(), s.store.SaveUser(s.ctx, s.testUser(), false))
}

func (s *StoreTestSuite) TestSessionMirrorsActiveUser() {
	user := s.testUser()
	require.NoError(s.T(), s.store.SaveUser(s.ctx, user, true))

	got, ok := s.store.LoadSession(s.ctx)
	require.True(s.T(), ok)
	assert.Equal(s.T(), user, *got)
}

func (s *StoreTestSuite) TestLoadSessionInvalidPointer() {
	user := s.testUser()
	require.NoError(s.T(), s.store.SaveUser(s.ctx, user, true))

	// Remove the user out from under the session pointer.
	require.NoError(s.T(), s.store.DeleteUser(s.ctx, user.ID))

	_, ok := s.store.LoadSession(s.ctx)
	assert.False(s.T(), ok, "session pointing at a missing user must be invalid")
}

func (s *StoreTestSuite) TestDeleteUserClearsSession() {
	user := s.testUser()
	require.NoError(s.T(), s.store.SaveUser(s.ctx, user, true))
	require.NoError(s.T(), s.store.DeleteUser(s.ctx, user.ID))

	users, _ := s.store.LoadAll(s.ctx)
	assert.NotContains(s.T(), users, user.ID)
	_, ok := s.store.LoadSession(s.ctx)
	assert.False(s.T(), ok)
}

func (s *StoreTestSuite) TestClearSessionKeepsUserRecord() {
	user := s.testUser()
	require.NoError(s.T(), s.store.SaveUser(s.ctx, user, true))
	require.NoError(s.T(), s.store.ClearSession(s.ctx))

	_, ok := s.store.LoadSession(s.ctx)
	assert.False(s.T(), ok)

	users, _ := s.store.LoadAll(s.ctx)
	assert.Contains(s.T(), users, user.ID)
}

func (s *StoreTestSuite) TestDuplicateEmailRejected() {
	first := s.testUser()
	require.NoError(s.T(), s.store.SaveUser(s.ctx, first, false))

	second := s.testUser()
	second.ID = "1700000000001"
	second.Username = "someoneelse"

	err := s.store.SaveUser(s.ctx, second, false)
	assert.ErrorIs(s.T(), err, ErrDuplicateEmail)

	users, _ := s.store.LoadAll(s.ctx)
	assert.Len(s.T(), users, 1, "rejected write must not mutate state")
}

func (s *StoreTestSuite) TestDuplicateUsernameRejected() {
	first := s.testUser()
	require.NoError(s.T(), s.store.SaveUser(s.ctx, first, false))

	second := s.testUser()
	second.ID = "1700000000001"
	second.Email = "b@example.com"

	err := s.store.SaveUser(s.ctx, second, false)
	assert.ErrorIs(s.T(), err, ErrDuplicateUsername)
}

func (s *StoreTestSuite) TestUpdateOwnRecordIsNotADuplicate() {
	user := s.testUser()
	require.NoError(s.T(), s.store.SaveUser(s.ctx, user, false))

	user.MonthlyLimit = 9_000_000
	assert.NoError(s.T(), s.store.SaveUser(s.ctx, user, false))
}

func (s *StoreTestSuite) TestStaleVersionWriteRejected() {
	user := s.testUser()
	require.NoError(s.T(), s.store.SaveUser(s.ctx, user, false))

	users, version, err := s.store.loadUsers(s.ctx)
	require.NoError(s.T(), err)

	// A concurrent writer bumps the record in between.
	require.NoError(s.T(), s.store.db.Model(&Record{}).
		Where("key = ?", KeyUsers).
		Update("version", version+1).Error)

	err = s.store.writeRecord(s.ctx, KeyUsers, users, version)
	assert.ErrorIs(s.T(), err, ErrVersionConflict)
}

func (s *StoreTestSuite) TestSaveTheme() {
	theme := DefaultTheme()
	theme.CardOpacity = 0.5
	theme.SelectedColorIndex = 3
	require.NoError(s.T(), s.store.SaveTheme(s.ctx, theme))

	_, got := s.store.LoadAll(s.ctx)
	assert.Equal(s.T(), theme, got)
}

func (s *StoreTestSuite) TestCacheNameRegistry() {
	assert.Empty(s.T(), s.store.CacheNames(s.ctx))

	require.NoError(s.T(), s.store.SaveCacheNames(s.ctx, []string{"expense-manager-v2", "expense-manager-v3"}))
	assert.Equal(s.T(), []string{"expense-manager-v2", "expense-manager-v3"}, s.store.CacheNames(s.ctx))
}

func (s *StoreTestSuite) TestReset() {
	require.NoError(s.T(), s.store.SaveUser(s.ctx, s.testUser(), true))
	require.NoError(s.T(), s.store.SaveTheme(s.ctx, DefaultTheme()))
	require.NoError(s.T(), s.store.Reset(s.ctx))

	users, theme := s.store.LoadAll(s.ctx)
	assert.Empty(s.T(), users)
	assert.True(s.T(), theme.IsZero())
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

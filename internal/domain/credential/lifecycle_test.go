package credential_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-tour-booking/internal/domain/credential"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/memory"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newLifecycle(c *clock) *credential.Lifecycle {
	return credential.New(credential.Config{Cost: bcrypt.MinCost, Now: c.Now})
}

func TestHashAndStore(t *testing.T) {
	l := newLifecycle(&clock{t: time.Now()})

	u := &entity.User{PasswordConfirm: "test1234"}
	require.NoError(t, l.HashAndStore(u, "test1234"))
	assert.NotEqual(t, "test1234", u.Password)
	assert.Empty(t, u.PasswordConfirm)
	assert.True(t, l.Verify("test1234", u.Password))
	assert.False(t, l.Verify("test12345", u.Password))
	assert.False(t, l.Verify("test1234", ""))
}

func TestHashAndStore_Rejects(t *testing.T) {
	l := newLifecycle(&clock{t: time.Now()})

	cases := []struct {
		name     string
		password string
		confirm  string
		field    string
	}{
		{"too short", "short", "", "password"},
		{"confirm mismatch", "test1234", "test4321", "passwordConfirm"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &entity.User{PasswordConfirm: tc.confirm}
			err := l.HashAndStore(u, tc.password)
			require.Error(t, err)
			var ae *apperror.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, apperror.ValidationFailed, ae.Kind)
			assert.Contains(t, ae.Fields, tc.field)
			assert.Empty(t, u.Password)
		})
	}
}

func TestWasChangedAfter(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 30, 0, time.UTC)}
	l := newLifecycle(c)
	u := &entity.User{}

	assert.False(t, l.WasChangedAfter(u, c.t.Add(-time.Hour)), "never changed")

	l.RecordChangeTimestamp(u)
	require.NotNil(t, u.PasswordChangedAt)
	assert.Equal(t, c.t.Add(-time.Second), *u.PasswordChangedAt)

	// token issued in the same second as the change stays valid
	assert.False(t, l.WasChangedAfter(u, c.t))
	assert.False(t, l.WasChangedAfter(u, c.t.Add(-time.Second)))
	assert.True(t, l.WasChangedAfter(u, c.t.Add(-2*time.Second)))
}

func TestIssueResetToken(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	l := newLifecycle(c)
	u := &entity.User{}

	tok, err := l.IssueResetToken(u)
	require.NoError(t, err)
	assert.Len(t, tok, 64)
	assert.Equal(t, credential.HashToken(tok), u.PasswordResetToken)
	assert.NotEqual(t, tok, u.PasswordResetToken)
	require.NotNil(t, u.PasswordResetExpires)
	assert.Equal(t, c.t.Add(10*time.Minute), *u.PasswordResetExpires)

	again, err := l.IssueResetToken(u)
	require.NoError(t, err)
	assert.NotEqual(t, tok, again)
	assert.Equal(t, credential.HashToken(again), u.PasswordResetToken)
}

func seedWithToken(t *testing.T, l *credential.Lifecycle) (*memory.Collection[entity.User], *entity.User, string) {
	t.Helper()
	users := memory.NewCollection[entity.User](repository.Users, repository.UserIndexes...)
	u := &entity.User{Name: "Ada", Email: "ada@example.com", Active: true}
	require.NoError(t, l.HashAndStore(u, "oldpassword"))
	tok, err := l.IssueResetToken(u)
	require.NoError(t, err)
	stored, err := users.Insert(context.Background(), u)
	require.NoError(t, err)
	return users, stored, tok
}

func TestConsumeResetToken(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	l := newLifecycle(c)
	users, stored, tok := seedWithToken(t, l)
	ctx := context.Background()

	c.t = c.t.Add(5 * time.Minute)
	u, err := l.ConsumeResetToken(ctx, users, tok, "newpassword", "newpassword")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, u.ID)
	assert.True(t, l.Verify("newpassword", u.Password))
	assert.Empty(t, u.PasswordResetToken)
	assert.Nil(t, u.PasswordResetExpires)
	require.NotNil(t, u.PasswordChangedAt)
	assert.True(t, u.PasswordChangedAt.Equal(c.t.Add(-time.Second)))

	_, err = l.ConsumeResetToken(ctx, users, tok, "another1", "")
	assert.True(t, apperror.IsKind(err, apperror.TokenInvalidOrExpired), "token is single use")
}

func TestConsumeResetToken_Expired(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	l := newLifecycle(c)
	users, _, tok := seedWithToken(t, l)

	c.t = c.t.Add(11 * time.Minute)
	_, err := l.ConsumeResetToken(context.Background(), users, tok, "newpassword", "")
	assert.True(t, apperror.IsKind(err, apperror.TokenInvalidOrExpired))
}

func TestConsumeResetToken_InactiveUser(t *testing.T) {
	c := &clock{t: time.Now()}
	l := newLifecycle(c)
	users, stored, tok := seedWithToken(t, l)
	ctx := context.Background()
	_, err := users.UpdateOne(ctx, []query.Condition{{Field: "_id", Op: query.Eq, Value: stored.ID}}, map[string]any{"active": false}, nil)
	require.NoError(t, err)

	_, err = l.ConsumeResetToken(ctx, users, tok, "newpassword", "")
	assert.True(t, apperror.IsKind(err, apperror.TokenInvalidOrExpired))
}

func TestConsumeResetToken_WeakPassword(t *testing.T) {
	l := newLifecycle(&clock{t: time.Now()})
	users, _, tok := seedWithToken(t, l)

	_, err := l.ConsumeResetToken(context.Background(), users, tok, "short", "")
	assert.True(t, apperror.IsKind(err, apperror.ValidationFailed))

	// the token survives a rejected attempt
	_, err = l.ConsumeResetToken(context.Background(), users, tok, "longenough", "")
	assert.NoError(t, err)
}

func TestConsumeResetToken_Concurrent(t *testing.T) {
	l := newLifecycle(&clock{t: time.Now()})
	users, _, tok := seedWithToken(t, l)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		invalid int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.ConsumeResetToken(context.Background(), users, tok, "newpassword", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case apperror.IsKind(err, apperror.TokenInvalidOrExpired):
				invalid++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, invalid)
}

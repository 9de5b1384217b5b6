package service

import (
	"context"
	"testing"
	"time"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

func newAuthService(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewDB(t)
	c := cache.New(rdb)
	return NewAuthService(repository.NewUserRepository(db, c), c, testSecret, time.Hour), mr
}

func validSignup() SignupInput {
	return SignupInput{
		Username:  "leo",
		Email:     "leo@example.com",
		FirstName: "Leo",
		LastName:  "Tolstoy",
		Password1: "war-and-peace-1869",
		Password2: "war-and-peace-1869",
	}
}

func TestAuthService_SignupLoginLogout(t *testing.T) {
	svc, mr := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "war-and-peace-1869", user.Password)

	logged, err := svc.Login(ctx, LoginInput{Username: "leo", Password: "war-and-peace-1869"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	token, sess, err := svc.IssueToken(logged)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.TokenID)

	verified, err := svc.VerifySession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.UserID)
	assert.Equal(t, "leo", verified.Username)

	require.NoError(t, svc.Logout(ctx, token))
	assert.True(t, mr.Exists(cache.RevokedKey(sess.TokenID)))
	assert.Greater(t, mr.TTL(cache.RevokedKey(sess.TokenID)), time.Duration(0))

	_, err = svc.VerifySession(ctx, token)
	assert.Equal(t, models.CodeUnauthorized, models.CodeOf(err))

	assert.NoError(t, svc.Logout(ctx, "garbage"))
	assert.NoError(t, svc.Logout(ctx, ""))
}

func TestAuthService_SignupErrors(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	dupName := validSignup()
	dupName.Email = "other@example.com"
	_, err = svc.Signup(ctx, dupName)
	assert.Equal(t, []string{"A user with that username already exists."}, models.FieldsOf(err)["username"])

	dupEmail := validSignup()
	dupEmail.Username = "kate"
	dupEmail.Email = "LEO@example.com"
	_, err = svc.Signup(ctx, dupEmail)
	assert.Equal(t, []string{"A user with that email already exists."}, models.FieldsOf(err)["email"])

	mismatch := validSignup()
	mismatch.Username = "anna"
	mismatch.Email = "anna@example.com"
	mismatch.Password2 = "something-else-entirely"
	_, err = svc.Signup(ctx, mismatch)
	assert.Equal(t, []string{"The two password fields didn't match."}, models.FieldsOf(err)["password2"])
}

func TestAuthService_LoginRejects(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	for _, in := range []LoginInput{
		{Username: "leo", Password: "wrong-password"},
		{Username: "nobody", Password: "war-and-peace-1869"},
	} {
		_, err := svc.Login(ctx, in)
		assert.Equal(t, models.CodeValidation, models.CodeOf(err))
		assert.Contains(t, models.FieldsOf(err), "__all__")
	}

	_, err = svc.Login(ctx, LoginInput{})
	fields := models.FieldsOf(err)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
}

func TestAuthService_VerifyRejectsBadTokens(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	user := &models.User{ID: 4, Username: "leo"}

	token, _, err := svc.IssueToken(user)
	require.NoError(t, err)

	_, err = svc.VerifySession(ctx, token+"x")
	assert.Error(t, err)

	other := NewAuthService(nil, nil, "a-completely-different-secret-value!!", time.Hour)
	_, err = other.VerifySession(ctx, token)
	assert.Error(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.VerifySession(ctx, token)
	assert.Error(t, err, "expired token")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "4"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.VerifySession(ctx, unsigned)
	assert.Error(t, err)
}

func TestAuthService_VerifyWithoutRedis(t *testing.T) {
	svc := NewAuthService(nil, nil, testSecret, time.Hour)
	token, _, err := svc.IssueToken(&models.User{ID: 9, Username: "kate"})
	require.NoError(t, err)

	sess, err := svc.VerifySession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(9), sess.UserID)
	assert.NoError(t, svc.Logout(context.Background(), token))
}

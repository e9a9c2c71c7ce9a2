package echoapi

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-records/core/user"
	testutil "github.com/trezcool/masomo-records/tests"
)

func Test_userApi_register(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "taken", "taken@test.cd", "", true, false)

	tests := []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/register", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username":         "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "username taken", method: http.MethodPost, path: "/v1/users/register",
			body:     []byte(`{"username": " TAKEN ", "password": "s3cr3t-pass", "password_confirm": "s3cr3t-pass"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "email taken", method: http.MethodPost, path: "/v1/users/register",
			body:     []byte(`{"username": "new", "email": "Taken@test.cd", "password": "s3cr3t-pass", "password_confirm": "s3cr3t-pass"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "password too short", method: http.MethodPost, path: "/v1/users/register",
			body:     []byte(`{"username": "new", "password": "abc", "password_confirm": "abc"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
	}
	runHTTPTests(t, env, tests)

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/register",
			[]byte(`{"username": " Ada ", "email": "ADA@test.cd", "password": "s3cr3t-pass", "password_confirm": "s3cr3t-pass", "is_admin": true}`))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got user.User
		decode(t, rec, &got)
		assert.Equal(t, "ada", got.Username)
		assert.Equal(t, "ada@test.cd", got.Email)
		assert.True(t, got.IsActive)
		assert.False(t, got.IsAdmin, "admin rights cannot be self-assigned")
		assert.NotContains(t, rec.Body.String(), "password")
	})
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "ada", "ada@test.cd", "s3cr3t-pass", true, false)
	testutil.CreateUser(t, env.usrRepo, "gone", "gone@test.cd", "s3cr3t-pass", false, false)

	tests := []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     []byte(`{"username": "bob", "password": "s3cr3t-pass"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     []byte(`{"username": "ada", "password": "wrong-pass"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login",
			body:     []byte(`{"username": "gone", "password": "s3cr3t-pass"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	runHTTPTests(t, env, tests)

	for _, uname := range []string{"ADA", "ada@test.cd"} {
		t.Run("success with "+uname, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login",
				marchallObj(t, LoginRequest{Username: uname, Password: "s3cr3t-pass"}))
			env.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp LoginResponse
			decode(t, rec, &resp)
			claims := new(Claims)
			_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(env.conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, usr.ID, claims.Subject)
			assert.Equal(t, "ada", claims.Username)
			assert.False(t, claims.IsAdmin)

			stored, err := env.usrRepo.GetUserByID(req.Context(), usr.ID)
			require.NoError(t, err)
			assert.True(t, stored.LastLogin.Valid)
		})
	}
}

func Test_userApi_me(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "ada", "ada@test.cd", "", true, false)
	ghost := user.User{ID: "ghost", Username: "ghost"}

	runHTTPTests(t, env, []httpTest{
		{name: "auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "unknown user", path: "/v1/users/me", token: getToken(t, env, ghost),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{name: "success", path: "/v1/users/me", token: getToken(t, env, usr), wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	})
}

func Test_userApi_query(t *testing.T) {
	env := setup(t)
	now := time.Now()
	usr := testutil.CreateUser(t, env.usrRepo, "ada", "ada@test.cd", "", true, false, now.Add(-2*time.Hour))
	admin := testutil.CreateUser(t, env.usrRepo, "admin", "admin@test.cd", "", true, true, now.Add(-time.Hour))
	naughty := testutil.CreateUser(t, env.usrRepo, "ndog", "", "", false, false, now)

	runHTTPTests(t, env, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: getToken(t, env, usr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "newest first", path: "/v1/users", token: getToken(t, env, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, naughty, admin, usr),
		},
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "ada", "ada@test.cd", "", true, false)
	gone := testutil.CreateUser(t, env.usrRepo, "gone", "gone@test.cd", "", true, false)
	goneToken := getToken(t, env, gone)
	_, err := env.usrRepo.UpdateUser(t.Context(), func() user.User { gone.IsActive = false; return gone }())
	require.NoError(t, err)

	staleToken, err := env.srv.auth.generateToken(env.srv.auth.userClaims(usr, time.Now().Add(-5*time.Hour).Unix()))
	require.NoError(t, err)

	runHTTPTests(t, env, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/users/token-refresh",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/token-refresh", token: goneToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "refresh expired", method: http.MethodPost, path: "/v1/users/token-refresh", token: staleToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
	})

	t.Run("success", func(t *testing.T) {
		oriat := time.Now().Add(-time.Hour).Unix()
		token, err := env.srv.auth.generateToken(env.srv.auth.userClaims(usr, oriat))
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		decode(t, rec, &resp)
		claims := new(Claims)
		_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(env.conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, oriat, claims.OrigIssuedAt, "original issue time is kept")
		assert.Equal(t, usr.ID, claims.Subject)
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "ada", "ada@test.cd", "old-s3cr3t", true, false)
	success := SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	}

	runHTTPTests(t, env, []httpTest{
		{
			name: "invalid email", method: http.MethodPost, path: "/v1/users/password-reset", body: []byte(`{"email": "lol"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/users/password-reset",
			body: []byte(`{"email": "bob@test.cd"}`), wantCode: http.StatusOK, wantData: marchallObj(t, success),
		},
	})
	require.Empty(t, env.mailSvc.SentMessages())

	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", []byte(`{"email": " ADA@test.cd "}`))
	env.serve(req, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, success)}, rec)

	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	uid := regexp.MustCompile(`uid: (\S+)`).FindStringSubmatch(sent[0].Body)
	token := regexp.MustCompile(`token: (\S+)`).FindStringSubmatch(sent[0].Body)
	require.Len(t, uid, 2)
	require.Len(t, token, 2)

	confirm := func(token string) []byte {
		return marchallObj(t, user.ResetUserPassword{UID: uid[1], Token: token, Password: "new-s3cr3t", PasswordConfirm: "new-s3cr3t"})
	}
	runHTTPTests(t, env, []httpTest{
		{
			name: "bad token", method: http.MethodPost, path: "/v1/users/password-reset-confirm", body: confirm("1-abc"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "confirmed", method: http.MethodPost, path: "/v1/users/password-reset-confirm", body: confirm(token[1]),
			wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "login with new password", method: http.MethodPost, path: "/v1/users/login",
			body: marchallObj(t, LoginRequest{Username: "ada", Password: "new-s3cr3t"}), wantCode: http.StatusOK,
		},
	})
}

package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) auth() AuthService {
	return NewAuthService(f.store.Users(), f.store.Registry(), f.cfg, f.dispatcher)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	svc := f.auth()
	ctx := context.Background()

	resp, err := svc.Login(ctx, dto.LoginRequest{Email: "TIM@bv.vn", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, deptCardio, resp.User.Department)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "tim@bv.vn", Password: "wrong!"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@bv.vn", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenClaims(t *testing.T) {
	f := newFixture(t)
	resp, err := f.auth().Login(context.Background(), dto.LoginRequest{Email: "proc.a@bv.vn", Password: "secret1"})
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(f.cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, f.procA.UserID.String(), claims["user_id"])
	assert.Equal(t, model.RoleProcurement, claims["role"])
	assert.Equal(t, f.unitA.ID.String(), claims["unit_id"])
	assert.Equal(t, TokenAccess, claims["token_type"])
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	svc := f.auth()
	ctx := context.Background()
	login, err := svc.Login(ctx, dto.LoginRequest{Email: "tim@bv.vn", Password: "secret1"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, refreshed.User.ID)

	_, err = svc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized, "access tokens cannot be refreshed")
	_, err = svc.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	svc := f.auth()
	ctx := context.Background()

	user, err := svc.Register(ctx, f.admin, dto.CreateUserRequest{
		Name: "Điều dưỡng Lan", Email: "Lan@BV.vn", Role: model.RoleUsage, Department: deptICU,
	})
	require.NoError(t, err)
	assert.Equal(t, "lan@bv.vn", user.Email)
	assert.True(t, user.MustChangePassword)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "lan@bv.vn", Password: f.cfg.DefaultUserPassword})
	assert.NoError(t, err, "new accounts use the default password")

	_, err = svc.Register(ctx, f.admin, dto.CreateUserRequest{
		Name: "Trùng", Email: "lan@bv.vn", Role: model.RoleUsage, Department: deptICU,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, f.admin, dto.CreateUserRequest{
		Name: "Mua sắm C", Email: "proc.c@bv.vn", Role: model.RoleProcurement, Department: deptIT,
	})
	assert.ErrorIs(t, err, ErrValidation, "procurement accounts need a unit")

	unit := f.unitB.ID.String()
	proc, err := svc.Register(ctx, f.admin, dto.CreateUserRequest{
		Name: "Mua sắm C", Email: "proc.c@bv.vn", Role: model.RoleProcurement, Department: deptIT, UnitID: &unit,
	})
	require.NoError(t, err)
	require.NotNil(t, proc.UnitID)
	assert.Equal(t, unit, *proc.UnitID)

	_, err = svc.Register(ctx, f.cardio, dto.CreateUserRequest{Name: "x", Email: "x@bv.vn", Role: model.RoleUsage, Department: deptICU})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	svc := f.auth()
	ctx := context.Background()

	err := svc.ChangePassword(ctx, f.cardio, dto.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "12345", ConfirmPassword: "12345"})
	assert.ErrorIs(t, err, ErrValidation)
	err = svc.ChangePassword(ctx, f.cardio, dto.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "newpass1", ConfirmPassword: "newpass2"})
	assert.ErrorIs(t, err, ErrValidation)

	// A session token alone is not enough to take over the account.
	err = svc.ChangePassword(ctx, f.cardio, dto.ChangePasswordRequest{NewPassword: "newpass1", ConfirmPassword: "newpass1"})
	assert.ErrorIs(t, err, ErrValidation)
	err = svc.ChangePassword(ctx, f.cardio, dto.ChangePasswordRequest{CurrentPassword: "wrong1", NewPassword: "newpass1", ConfirmPassword: "newpass1"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Login(ctx, dto.LoginRequest{Email: "tim@bv.vn", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, f.cardio, dto.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "newpass1", ConfirmPassword: "newpass1"}))
	_, err = svc.Login(ctx, dto.LoginRequest{Email: "tim@bv.vn", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, dto.LoginRequest{Email: "tim@bv.vn", Password: "newpass1"})
	assert.NoError(t, err)
}

func TestChangePassword_AfterResetSkipsCurrent(t *testing.T) {
	f := newFixture(t)
	svc := f.auth()
	ctx := context.Background()

	require.NoError(t, svc.ResetPassword(ctx, f.admin, f.icu.UserID))
	require.NoError(t, svc.ChangePassword(ctx, f.icu, dto.ChangePasswordRequest{NewPassword: "newpass1", ConfirmPassword: "newpass1"}))

	login, err := svc.Login(ctx, dto.LoginRequest{Email: "hoisuc@bv.vn", Password: "newpass1"})
	require.NoError(t, err)
	assert.False(t, login.User.MustChangePassword)

	// The flag is cleared, so the next change needs the current password.
	err = svc.ChangePassword(ctx, f.icu, dto.ChangePasswordRequest{NewPassword: "newpass2", ConfirmPassword: "newpass2"})
	assert.ErrorIs(t, err, ErrValidation)
}

var resetPasswordRe = regexp.MustCompile(`Mật khẩu mới của bạn là: (\S+)`)

func TestForgotPassword(t *testing.T) {
	f := newFixture(t)
	svc := f.auth()
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, dto.ForgotPasswordRequest{Email: "hoisuc@bv.vn"}))
	require.Len(t, f.dispatcher.emails, 1)
	mail := f.dispatcher.emails[0]
	assert.Equal(t, "hoisuc@bv.vn", mail.to)

	m := resetPasswordRe.FindStringSubmatch(mail.body)
	require.Len(t, m, 2)
	assert.Len(t, m[1], resetPasswordLength)

	login, err := svc.Login(ctx, dto.LoginRequest{Email: "hoisuc@bv.vn", Password: m[1]})
	require.NoError(t, err)
	assert.True(t, login.User.MustChangePassword)

	err = svc.ForgotPassword(ctx, dto.ForgotPasswordRequest{Email: "khongco@bv.vn"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResetAndDeleteUser(t *testing.T) {
	f := newFixture(t)
	svc := f.auth()
	ctx := context.Background()

	require.NoError(t, svc.ResetPassword(ctx, f.admin, f.icu.UserID))
	_, err := svc.Login(ctx, dto.LoginRequest{Email: "hoisuc@bv.vn", Password: f.cfg.DefaultUserPassword})
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteUser(ctx, f.admin, f.admin.UserID), ErrValidation)
	assert.ErrorIs(t, svc.DeleteUser(ctx, f.cardio, f.icu.UserID), ErrForbidden)
	require.NoError(t, svc.DeleteUser(ctx, f.admin, f.icu.UserID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, f.admin, f.icu.UserID), ErrNotFound)
}

func TestUpdateUserAndProfile(t *testing.T) {
	f := newFixture(t)
	svc := f.auth()
	ctx := context.Background()

	role := model.RoleAccounting
	updated, err := svc.UpdateUser(ctx, f.admin, f.procA.UserID, dto.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAccounting, updated.Role)
	assert.Nil(t, updated.UnitID, "only procurement accounts keep a unit")

	_, err = svc.UpdateUser(ctx, f.admin, uuid.New(), dto.UpdateUserRequest{Role: &role})
	assert.ErrorIs(t, err, ErrNotFound)

	me, err := svc.UpdateProfile(ctx, f.cardio, dto.UpdateProfileRequest{Name: "  BS. Nguyễn Văn Tim "})
	require.NoError(t, err)
	assert.Equal(t, "BS. Nguyễn Văn Tim", me.Name)
	_, err = svc.UpdateProfile(ctx, f.cardio, dto.UpdateProfileRequest{Name: " "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReplaceUsers(t *testing.T) {
	f := newFixture(t)
	svc := f.auth()
	ctx := context.Background()

	existing := f.icu.UserID.String()
	resp, err := svc.ReplaceUsers(ctx, f.admin, []dto.CreateUserRequest{
		{ID: &existing, Name: "Bác sĩ Hồi sức (trưởng khoa)", Email: "hoisuc@bv.vn", Role: model.RoleUsage, Department: deptICU},
		{Name: "Dược sĩ Mai", Email: "mai@bv.vn", Role: model.RoleUsage, Department: "Khoa Dược"},
	})
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.Equal(t, "Bác sĩ Hồi sức (trưởng khoa)", resp[0].Name)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "hoisuc@bv.vn", Password: "secret1"})
	assert.NoError(t, err, "updates keep the password")

	users, err := svc.ListUsers(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, users, 9)
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/config"
	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Token types stored in the "token_type" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

const (
	minPasswordLength   = 6
	resetPasswordLength = 8
	passwordAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

// bcryptCost is lowered by tests.
var bcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	Me(ctx context.Context, actor Actor) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, actor Actor, req dto.ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, actor Actor, req dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ForgotPassword(ctx context.Context, req dto.ForgotPasswordRequest) error

	ListUsers(ctx context.Context, actor Actor) ([]dto.UserResponse, error)
	Register(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*dto.UserResponse, error)
	UpdateUser(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	ResetPassword(ctx context.Context, actor Actor, id uuid.UUID) error
	DeleteUser(ctx context.Context, actor Actor, id uuid.UUID) error
	ReplaceUsers(ctx context.Context, actor Actor, reqs []dto.CreateUserRequest) ([]dto.UserResponse, error)
}

type authService struct {
	repo       repository.UserRepository
	registry   repository.RegistryRepository
	cfg        *config.Config
	dispatcher JobDispatcher
}

func NewAuthService(repo repository.UserRepository, registry repository.RegistryRepository, cfg *config.Config, dispatcher JobDispatcher) AuthService {
	return &authService{repo: repo, registry: registry, cfg: cfg, dispatcher: dispatcher}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	invalid := &Error{Kind: ErrUnauthorized, Msg: "Email hoặc mật khẩu không đúng"}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalid
	}
	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	invalid := &Error{Kind: ErrUnauthorized, Msg: "Refresh token không hợp lệ hoặc đã hết hạn"}

	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, invalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["token_type"] != TokenRefresh {
		return nil, invalid
	}
	userIDStr, _ := claims["user_id"].(string)
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, invalid
	}

	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, invalid
	}
	return s.issueTokens(user)
}

func (s *authService) Me(ctx context.Context, actor Actor) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy người dùng")
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) ChangePassword(ctx context.Context, actor Actor, req dto.ChangePasswordRequest) error {
	if len(req.NewPassword) < minPasswordLength {
		return validationErr(fmt.Sprintf("Mật khẩu phải có ít nhất %d ký tự", minPasswordLength))
	}
	if req.NewPassword != req.ConfirmPassword {
		return validationErr("Mật khẩu xác nhận không khớp")
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return lookupErr(err, "Không tìm thấy người dùng")
	}
	if !user.MustChangePassword {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
			return validationErr("Mật khẩu hiện tại không đúng")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.MustChangePassword = false
	return s.repo.Update(ctx, user)
}

func (s *authService) UpdateProfile(ctx context.Context, actor Actor, req dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("Tên không được để trống")
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy người dùng")
	}
	user.Name = name
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) ForgotPassword(ctx context.Context, req dto.ForgotPasswordRequest) error {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return lookupErr(err, "Email không tồn tại trong hệ thống")
	}

	password, err := randomPassword(resetPasswordLength)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.MustChangePassword = true
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	if s.dispatcher == nil {
		log.Warn().Str("user_id", user.ID.String()).Msg("auth: no dispatcher, reset e-mail not sent")
		return nil
	}
	body := fmt.Sprintf(
		"Xin chào %s,\n\nMật khẩu mới của bạn là: %s\nVui lòng đăng nhập và đổi mật khẩu ngay.\n",
		user.Name, password)
	return s.dispatcher.EnqueueEmail(ctx, user.Email, "Cấp lại mật khẩu", body)
}

// ── Admin operations ──────────────────────────────────────────────────────────

func requireAdmin(actor Actor) error {
	if actor.Role != model.RoleAdmin {
		return forbiddenErr("Chỉ quản trị viên được thực hiện thao tác này")
	}
	return nil
}

func (s *authService) ListUsers(ctx context.Context, actor Actor) ([]dto.UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(&users[i])
	}
	return resp, nil
}

func (s *authService) Register(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.newUser(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, duplicateEmail(err)
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) UpdateUser(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy người dùng")
	}
	if err := s.applyUserFields(ctx, user, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) ResetPassword(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupErr(err, "Không tìm thấy người dùng")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.DefaultUserPassword), bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.MustChangePassword = true
	return s.repo.Update(ctx, user)
}

func (s *authService) DeleteUser(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.UserID {
		return validationErr("Không thể tự xóa tài khoản của mình")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupErr(err, "Không tìm thấy người dùng")
	}
	return nil
}

// ReplaceUsers upserts the collection in one transaction. Entries with an id
// update profile fields only; passwords never change through this path.
func (s *authService) ReplaceUsers(ctx context.Context, actor Actor, reqs []dto.CreateUserRequest) ([]dto.UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(reqs))
	creates := make([]bool, 0, len(reqs))
	for _, req := range reqs {
		id, err := parseOptionalID(req.ID)
		if err != nil {
			return nil, err
		}
		if id == nil {
			u, err := s.newUser(ctx, req)
			if err != nil {
				return nil, err
			}
			users = append(users, u)
			creates = append(creates, true)
			continue
		}
		u, err := s.repo.FindByID(ctx, *id)
		if err != nil {
			return nil, lookupErr(err, "Không tìm thấy người dùng "+id.String())
		}
		fields := dto.UpdateUserRequest{
			Name: &req.Name, Role: &req.Role, Department: &req.Department, UnitID: req.UnitID,
		}
		if err := s.applyUserFields(ctx, u, fields); err != nil {
			return nil, err
		}
		users = append(users, u)
		creates = append(creates, false)
	}

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for i, u := range users {
			if creates[i] {
				if err := s.repo.CreateTx(tx, u); err != nil {
					return duplicateEmail(err)
				}
				continue
			}
			if err := s.repo.UpdateTx(tx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := make([]dto.UserResponse, len(users))
	for i, u := range users {
		resp[i] = userToResponse(u)
	}
	return resp, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *authService) newUser(ctx context.Context, req dto.CreateUserRequest) (*model.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("Tên không được để trống")
	}
	if !model.IsDepartment(req.Department) {
		return nil, validationErr("Khoa/phòng không hợp lệ")
	}
	unitID, err := s.resolveUnit(ctx, req.Role, req.UnitID)
	if err != nil {
		return nil, err
	}

	password := s.cfg.DefaultUserPassword
	mustChange := true
	if req.Password != nil && *req.Password != "" {
		password = *req.Password
		mustChange = false
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	return &model.User{
		Name:               name,
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:       string(hash),
		Role:               req.Role,
		Department:         req.Department,
		UnitID:             unitID,
		MustChangePassword: mustChange,
	}, nil
}

func (s *authService) applyUserFields(ctx context.Context, u *model.User, req dto.UpdateUserRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return validationErr("Tên không được để trống")
		}
		u.Name = name
	}
	if req.Role != nil && *req.Role != "" {
		u.Role = *req.Role
	}
	if req.Department != nil && *req.Department != "" {
		if !model.IsDepartment(*req.Department) {
			return validationErr("Khoa/phòng không hợp lệ")
		}
		u.Department = *req.Department
	}
	unitRef := req.UnitID
	if unitRef == nil && u.UnitID != nil {
		cur := u.UnitID.String()
		unitRef = &cur
	}
	unitID, err := s.resolveUnit(ctx, u.Role, unitRef)
	if err != nil {
		return err
	}
	u.UnitID = unitID
	return nil
}

// resolveUnit keeps a unit only for PROCUREMENT accounts, which must have one.
func (s *authService) resolveUnit(ctx context.Context, role string, raw *string) (*uuid.UUID, error) {
	if role != model.RoleProcurement {
		return nil, nil
	}
	id, err := parseOptionalID(raw)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, validationErr("Tài khoản mua sắm phải thuộc một đơn vị")
	}
	if _, err := s.registry.FindUnit(ctx, *id); err != nil {
		return nil, lookupErr(err, "Không tìm thấy đơn vị mua sắm")
	}
	return id, nil
}

func duplicateEmail(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return validationErr("Email đã được sử dụng")
	}
	return err
}

func (s *authService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	accessToken, err := s.generateToken(user, TokenAccess, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(user, TokenRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         userToResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.User, tokenType string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    user.ID.String(),
		"email":      user.Email,
		"role":       user.Role,
		"department": user.Department,
		"token_type": tokenType,
		"exp":        time.Now().Add(duration).Unix(),
		"iat":        time.Now().Unix(),
	}
	if user.UnitID != nil {
		claims["unit_id"] = user.UnitID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func randomPassword(n int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, n)
	for i := range b {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[k.Int64()]
	}
	return string(b), nil
}

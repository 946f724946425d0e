package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CurrentPassword may be empty only while the account must change its
// password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"     validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// CreateUserRequest registers an account. In the bulk collection payload an
// entry carrying ID updates that user instead.
type CreateUserRequest struct {
	ID         *string `json:"id"         validate:"omitempty,uuid"`
	Name       string  `json:"name"       validate:"required,max=120"`
	Email      string  `json:"email"      validate:"required,email"`
	Role       string  `json:"role"       validate:"required,oneof=ADMIN PROCUREMENT USAGE ACCOUNTING COUNCIL GUEST"`
	Department string  `json:"department" validate:"required,department"`
	UnitID     *string `json:"unit_id"    validate:"omitempty,uuid"`
	Password   *string `json:"password"   validate:"omitempty,min=6"`
}

type UpdateUserRequest struct {
	Name       *string `json:"name"       validate:"omitempty,max=120"`
	Role       *string `json:"role"       validate:"omitempty,oneof=ADMIN PROCUREMENT USAGE ACCOUNTING COUNCIL GUEST"`
	Department *string `json:"department" validate:"omitempty,department"`
	UnitID     *string `json:"unit_id"    validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	Role               string  `json:"role"`
	Department         string  `json:"department"`
	UnitID             *string `json:"unit_id"`
	MustChangePassword bool    `json:"must_change_password"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // seconds
	User         UserResponse `json:"user"`
}

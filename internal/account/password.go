package account

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// Verification modes.
const (
	ModeCurrent = "current"
	ModeOTP     = "otp"
)

// PasswordAPI is the slice of the clinic API used for password changes.
type PasswordAPI interface {
	ChangePassword(ctx context.Context, current, next string) error
	SendOTP(ctx context.Context, email string) error
	ResetPasswordWithOTP(ctx context.Context, email, otp, next string) error
}

// PasswordForm holds what the user typed.
type PasswordForm struct {
	Current string `json:"currentPassword"`
	New     string `json:"newPassword"`
	Confirm string `json:"confirmPassword"`
	Code    string `json:"otp"`
}

// PasswordChange is the change-password dialog. Switching modes keeps the
// entered fields; only a successful submit clears them.
type PasswordChange struct {
	api     PasswordAPI
	session Session
	logger  *logging.Logger

	mu      sync.Mutex
	mode    string
	form    PasswordForm
	otpSent bool
}

func NewPasswordChange(api PasswordAPI, session Session, logger *logging.Logger) *PasswordChange {
	if logger == nil {
		logger = logging.Default()
	}
	return &PasswordChange{api: api, session: session, logger: logger, mode: ModeCurrent}
}

// Mode returns the active verification mode.
func (p *PasswordChange) Mode() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetMode switches verification mode.
func (p *PasswordChange) SetMode(mode string) error {
	if mode != ModeCurrent && mode != ModeOTP {
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, mode)
	}
	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()
	return nil
}

// Fill replaces the entered fields.
func (p *PasswordChange) Fill(form PasswordForm) {
	p.mu.Lock()
	p.form = form
	p.mu.Unlock()
}

// Form returns the entered fields.
func (p *PasswordChange) Form() PasswordForm {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form
}

// OTPSent reports whether a code has been requested since the last success.
func (p *PasswordChange) OTPSent() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.otpSent
}

// RequestOTP mails a code to the account email and unlocks OTP submission.
func (p *PasswordChange) RequestOTP(ctx context.Context) error {
	email, err := p.email()
	if err != nil {
		return err
	}
	if err := p.api.SendOTP(ctx, email); err != nil {
		return fmt.Errorf("account: send otp: %w", err)
	}
	p.mu.Lock()
	p.otpSent = true
	p.mu.Unlock()
	p.logger.Info("password reset code requested")
	return nil
}

// CanSubmit reports whether the mode's prerequisite is met: always in
// current-password mode, after RequestOTP in OTP mode.
func (p *PasswordChange) CanSubmit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode == ModeCurrent || p.otpSent
}

// Submit validates the form and changes the password through the active
// mode. Success clears the form and the OTP state.
func (p *PasswordChange) Submit(ctx context.Context) error {
	p.mu.Lock()
	mode, form, otpSent := p.mode, p.form, p.otpSent
	p.mu.Unlock()

	if mode == ModeOTP && !otpSent {
		return fmt.Errorf("%w: request a verification code first", ErrValidation)
	}
	if strings.TrimSpace(form.New) == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	if form.New != form.Confirm {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	switch mode {
	case ModeCurrent:
		if form.Current == "" {
			return fmt.Errorf("%w: current password is required", ErrValidation)
		}
		if err := p.api.ChangePassword(ctx, form.Current, form.New); err != nil {
			return fmt.Errorf("account: change password: %w", err)
		}
	case ModeOTP:
		code := strings.TrimSpace(form.Code)
		if code == "" {
			return fmt.Errorf("%w: verification code is required", ErrValidation)
		}
		email, err := p.email()
		if err != nil {
			return err
		}
		if err := p.api.ResetPasswordWithOTP(ctx, email, code, form.New); err != nil {
			return fmt.Errorf("account: reset password: %w", err)
		}
	}

	p.mu.Lock()
	p.form = PasswordForm{}
	p.otpSent = false
	p.mu.Unlock()
	p.logger.Info("password changed", "mode", mode)
	return nil
}

func (p *PasswordChange) email() (string, error) {
	user, ok := p.session.User()
	if !ok {
		return "", ErrSignedOut
	}
	if strings.TrimSpace(user.Email) == "" {
		return "", fmt.Errorf("%w: account has no email", ErrValidation)
	}
	return user.Email, nil
}

package apiclient

import (
	"context"
	"net/http"
	"net/url"
)

// LoginResult is the body of a successful login.
type LoginResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Login exchanges credentials for a token. identifier may be an email or a
// phone number.
func (c *Client) Login(ctx context.Context, identifier, password, role string) (*LoginResult, error) {
	q := url.Values{}
	q.Set("identifier", identifier)
	q.Set("password", password)
	q.Set("role", role)
	var out LoginResult
	if err := c.get(ctx, "login", "/auth/login", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	q := url.Values{}
	q.Set("name", req.Name)
	q.Set("email", req.Email)
	q.Set("password", req.Password)
	q.Set("address", req.Address)
	q.Set("phone", req.Phone)
	q.Set("role", req.Role)
	return c.get(ctx, "register", "/auth/register", q, nil)
}

// Me resolves the user behind the held token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	tok, err := c.adminToken()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("token", tok)
	var out struct {
		User User `json:"user"`
	}
	if err := c.get(ctx, "me", "/auth/me", q, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ChangePassword changes the password using the current one.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}
	return c.doJSON(ctx, "change_password", http.MethodPut, "/auth/change-password", body, nil)
}

// UpdateProfile sends profile edits and returns the user the API stored.
// The returned user may be partial; callers merge it into what they hold.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]string) (map[string]interface{}, error) {
	var out struct {
		User map[string]interface{} `json:"user"`
	}
	if err := c.doJSON(ctx, "update_profile", http.MethodPut, "/auth/profile", fields, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// SendOTP asks the API to mail a one-time code to email.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.doJSON(ctx, "send_otp", http.MethodPost, "/auth/send-otp", body, nil)
}

// ResetPasswordWithOTP sets a new password using a mailed code.
func (c *Client) ResetPasswordWithOTP(ctx context.Context, email, otp, next string) error {
	body := map[string]string{
		"email":       email,
		"otp":         otp,
		"newPassword": next,
	}
	return c.doJSON(ctx, "reset_password_otp", http.MethodPut, "/auth/reset-password-otp", body, nil)
}

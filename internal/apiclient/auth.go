package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"interviewcoach/internal/domain"
)

// wireUser accepts both credit field spellings the server has used.
type wireUser struct {
	Email                   string `json:"email"`
	Name                    string `json:"name"`
	TargetRole              string `json:"target_role"`
	ExperienceLevel         string `json:"experience_level"`
	FreeInterviews          *int   `json:"free_interviews"`
	FreeInterviewsRemaining *int   `json:"free_interviews_remaining"`
	PaidInterviews          *int   `json:"paid_interviews"`
	PaidInterviewsRemaining *int   `json:"paid_interviews_remaining"`
}

func (w wireUser) user() domain.User {
	return domain.User{
		Email:           w.Email,
		Name:            w.Name,
		TargetRole:      w.TargetRole,
		ExperienceLevel: w.ExperienceLevel,
		FreeInterviews:  firstInt(w.FreeInterviews, w.FreeInterviewsRemaining),
		PaidInterviews:  firstInt(w.PaidInterviews, w.PaidInterviewsRemaining),
	}
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

type messageResponse struct {
	Message string `json:"message"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token and the account shadow.
func (c *Client) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	if err := requireFields(map[string]string{"email": email, "password": password}); err != nil {
		return "", domain.User{}, err
	}
	var out struct {
		Token string   `json:"token"`
		User  wireUser `json:"user"`
	}
	if err := c.doJSON(ctx, "login", http.MethodPost, "/auth/login", credentials{email, password}, &out); err != nil {
		return "", domain.User{}, err
	}
	return out.Token, out.User.user(), nil
}

func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	if err := requireFields(map[string]string{"email": email, "password": password}); err != nil {
		return "", err
	}
	var out messageResponse
	if err := c.doJSON(ctx, "register", http.MethodPost, "/auth/register", credentials{email, password}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) VerifyEmail(ctx context.Context, token string) (string, error) {
	if err := requireFields(map[string]string{"token": token}); err != nil {
		return "", err
	}
	var out messageResponse
	path := "/auth/verify-email/" + url.PathEscape(strings.TrimSpace(token))
	if err := c.doJSON(ctx, "verify-email", http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	if err := requireFields(map[string]string{"email": email}); err != nil {
		return "", err
	}
	var out messageResponse
	if err := c.doJSON(ctx, "forgot-password", http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if err := requireFields(map[string]string{"token": token, "password": password}); err != nil {
		return "", err
	}
	in := map[string]string{"token": token, "password": password}
	var out messageResponse
	if err := c.doJSON(ctx, "reset-password", http.MethodPost, "/auth/reset-password", in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func requireFields(fields map[string]string) error {
	for _, name := range []string{"email", "token", "password"} {
		value, ok := fields[name]
		if ok && strings.TrimSpace(value) == "" {
			return domain.NewValidationError(name, name+" is required")
		}
	}
	return nil
}

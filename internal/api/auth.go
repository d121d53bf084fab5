package api

import (
	"context"
	"net/http"

	"github.com/julianstephens/surgisync/internal/models"
)

type SignupRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	FullName string   `json:"full_name,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

func (c *HTTPClient) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	out := &models.User{}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("auth", "signup"), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Login exchanges credentials for a session. The returned token is also
// installed on the client.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}
	out := &models.Session{}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("auth", "login"), body, out); err != nil {
		return nil, err
	}
	if out.Token != "" {
		c.SetToken(out.Token)
	}
	return out, nil
}

func (c *HTTPClient) Logout(ctx context.Context, email string) error {
	body := map[string]string{}
	if email != "" {
		body["email"] = email
	}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("auth", "logout"), body, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *HTTPClient) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	body := map[string]string{
		"email":        email,
		"old_password": oldPassword,
		"new_password": newPassword,
	}
	return c.doJSON(ctx, http.MethodPost, c.endpoint("auth", "change-password"), body, nil)
}

package api

import (
	"context"
	"strings"
)

const (
	loginPath    = "/login"
	registerPath = "/register"
	refreshPath  = "/refresh-token"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.postJSON(ctx, loginPath, creds, &resp, false); err != nil {
		return nil, err
	}

	if strings.TrimSpace(resp.Token) == "" {
		return nil, malformed("login response has no token")
	}

	return &resp, nil
}

func (c *Client) Register(ctx context.Context, data Registration) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.postJSON(ctx, registerPath, data, &resp, false); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	payload := map[string]string{"refreshToken": refreshToken}

	var resp RefreshResponse
	if err := c.postJSON(ctx, refreshPath, payload, &resp, false); err != nil {
		return nil, err
	}

	if strings.TrimSpace(resp.Token) == "" {
		return nil, malformed("refresh response has no token")
	}

	return &resp, nil
}

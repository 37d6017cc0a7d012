package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/sandeepkv93/tasksync/internal/model"
)

// Login exchanges credentials for a bearer token. The backend expects an
// OAuth2 password form, so the email travels as "username".
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.Token, error) {
	if strings.TrimSpace(creds.Email) == "" {
		return model.Token{}, &ValidationFailed{Field: "email", Reason: "must not be empty"}
	}
	if creds.Password == "" {
		return model.Token{}, &ValidationFailed{Field: "password", Reason: "must not be empty"}
	}
	form := url.Values{}
	form.Set("username", strings.TrimSpace(creds.Email))
	form.Set("password", creds.Password)

	var tok model.Token
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		anonymous:   true,
	}, &tok)
	if err != nil {
		return model.Token{}, err
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return model.Token{}, errors.New("api: login response carried no access token")
	}
	return tok, nil
}

func (c *Client) Register(ctx context.Context, reg model.Registration) (model.User, error) {
	if err := reg.Validate(); err != nil {
		field := "password"
		if errors.Is(err, model.ErrInvalidEmail) {
			field = "email"
		}
		return model.User{}, &ValidationFailed{Field: field, Reason: err.Error()}
	}
	req, err := c.jsonRequest(http.MethodPost, "/auth/register", nil, reg)
	if err != nil {
		return model.User{}, err
	}
	req.anonymous = true
	var wire wireUser
	if err := c.do(ctx, req, &wire); err != nil {
		return model.User{}, err
	}
	return wire.model(), nil
}

// Me resolves the user behind the current token. Without a token it fails
// with ErrUnauthenticated and sends nothing.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	token, err := c.token(ctx)
	if err != nil {
		return model.User{}, err
	}
	if token == "" {
		return model.User{}, ErrUnauthenticated
	}
	var wire wireUser
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me"}, &wire); err != nil {
		return model.User{}, err
	}
	return wire.model(), nil
}

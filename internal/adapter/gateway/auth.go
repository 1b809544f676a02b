package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login exchanges a username and password for a bearer credential.
func (g *HTTPGateway) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	body, err := g.do(ctx, call{
		method:      http.MethodPost,
		url:         g.endpoints.Auth + "/auth/token",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		anonymous:   true,
	})
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var tok tokenResponse
	if err := decode(body, &tok); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("login: %w: empty access token", domain.ErrServer)
	}
	return tok.AccessToken, nil
}

func (g *HTTPGateway) Register(ctx context.Context, reg domain.Registration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}
	_, err = g.do(ctx, call{
		method:      http.MethodPost,
		url:         g.endpoints.Auth + "/auth/",
		body:        payload,
		contentType: "application/json",
		anonymous:   true,
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

func (g *HTTPGateway) Welcome(ctx context.Context, role domain.Role) (string, error) {
	var msg messageResponse
	if err := g.getJSON(ctx, g.endpoints.Dashboard+"/dashboard/"+url.PathEscape(string(role)), &msg); err != nil {
		return "", fmt.Errorf("welcome: %w", err)
	}
	return msg.Message, nil
}

package apiclient

import (
	"context"
	"net/http"

	"github.com/omelentjeff/product-management-app/internal/model"
)

// Authenticate posts credentials to {base}/auth/authenticate.
func (c *Client) Authenticate(ctx context.Context, in model.AuthRequest) (model.AuthResponse, error) {
	return c.postAuth(ctx, "/auth/authenticate", in)
}

// Register posts a signup to {base}/auth/register.
func (c *Client) Register(ctx context.Context, in model.RegisterRequest) (model.AuthResponse, error) {
	return c.postAuth(ctx, "/auth/register", in)
}

func (c *Client) postAuth(ctx context.Context, path string, in any) (model.AuthResponse, error) {
	body, err := jsonBody(in)
	if err != nil {
		return model.AuthResponse{}, err
	}
	var out model.AuthResponse
	_, err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: "application/json",
	}, &out)
	return out, err
}

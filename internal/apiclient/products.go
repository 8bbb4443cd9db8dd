package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/go-querystring/query"

	"github.com/omelentjeff/product-management-app/internal/model"
)

type listParams struct {
	Page int    `url:"page"`
	Size int    `url:"size,omitempty"`
	Sort string `url:"sort,omitempty"`
}

type searchParams struct {
	Query string `url:"query"`
}

// List fetches one page (0-based) of the sorted product listing.
func (c *Client) List(ctx context.Context, page, size int, sort string) (model.Page, error) {
	if size < 0 {
		size = 0
	}
	q, err := query.Values(listParams{Page: page, Size: size, Sort: sort})
	if err != nil {
		return model.Page{}, err
	}
	var p model.Page
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/products", query: q, auth: true}, &p); err != nil {
		return model.Page{}, err
	}
	if p.Content == nil {
		p.Content = []model.Product{}
	}
	return p, nil
}

// ListAll fetches every page in order and concatenates their content.
// Any failed page aborts the whole aggregation.
func (c *Client) ListAll(ctx context.Context, size int, sort string) ([]model.Product, error) {
	all := []model.Product{}
	for page := 0; ; {
		p, err := c.List(ctx, page, size, sort)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Content...)
		page++
		if page >= p.TotalPages {
			return all, nil
		}
	}
}

// Get fetches a single product. A missing product matches errs.ErrNotFound.
func (c *Client) Get(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	_, err := c.do(ctx, request{method: http.MethodGet, path: productPath(id), auth: true}, &p)
	return p, err
}

// Search queries products by name, manufacturer or GTIN. A 204 response
// means no matches and yields an empty page, not an error.
func (c *Client) Search(ctx context.Context, term string) (model.Page, error) {
	q, err := query.Values(searchParams{Query: term})
	if err != nil {
		return model.Page{}, err
	}
	var p model.Page
	status, err := c.do(ctx, request{method: http.MethodGet, path: "/products/search", query: q, auth: true}, &p)
	if err != nil {
		return model.Page{}, err
	}
	if status == http.StatusNoContent {
		return model.EmptyPage(), nil
	}
	if p.Content == nil {
		p.Content = []model.Product{}
	}
	return p, nil
}

// Create posts a new product; with an image the request is multipart.
func (c *Client) Create(ctx context.Context, in model.ProductInput, img *Image) (model.Product, error) {
	return c.write(ctx, http.MethodPost, "/products", &in, img)
}

// Update patches a product; with an image the request is multipart.
func (c *Client) Update(ctx context.Context, id int64, in model.ProductInput, img *Image) (model.Product, error) {
	return c.write(ctx, http.MethodPatch, productPath(id), &in, img)
}

// UploadImage replaces the product photo only.
func (c *Client) UploadImage(ctx context.Context, id int64, img Image) (model.Product, error) {
	return c.write(ctx, http.MethodPatch, productPath(id), nil, &img)
}

// Delete removes a product.
func (c *Client) Delete(ctx context.Context, id int64) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: productPath(id), auth: true}, nil)
	return err
}

func (c *Client) write(ctx context.Context, method, path string, in *model.ProductInput, img *Image) (model.Product, error) {
	r := request{method: method, path: path, auth: true}
	switch {
	case img != nil:
		var product any
		if in != nil {
			product = in
		}
		body, ct, err := multipartBody(product, img)
		if err != nil {
			return model.Product{}, err
		}
		r.body, r.contentType = body, ct
	case in != nil:
		body, err := jsonBody(in)
		if err != nil {
			return model.Product{}, err
		}
		r.body, r.contentType = body, "application/json"
	default:
		return model.Product{}, errors.New("nothing to send")
	}
	var p model.Product
	_, err := c.do(ctx, r, &p)
	return p, err
}

func productPath(id int64) string { return "/products/" + strconv.FormatInt(id, 10) }

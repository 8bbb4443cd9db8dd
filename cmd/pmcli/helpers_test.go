package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/omelentjeff/product-management-app/internal/model"
)

func fptr(f float64) *float64 { return &f }

// catalogue is an in-memory product API. Every product endpoint needs a
// token; writes need the admin role.
type catalogue struct {
	mu       sync.Mutex
	products map[int64]model.Product
	nextID   int64
	tokens   map[string]string // token -> role
	calls    map[string]int    // "METHOD pattern" -> count
}

func newCatalogue() *catalogue {
	c := &catalogue{products: map[int64]model.Product{}, tokens: map[string]string{}, calls: map[string]int{}}
	for _, p := range []model.Product{
		{Name: "Oat milk", Manufacturer: "Oatly", Weight: fptr(1000), GTIN: "7394376616037"},
		{Name: "Apple juice", Manufacturer: "Valio", Weight: fptr(1000)},
		{Name: "Cherry jam", Manufacturer: "Bonne Maman", Weight: fptr(370)},
		{Name: "Banana chips", Manufacturer: "Taffel", Weight: fptr(150)},
		{Name: "Oat flakes", Manufacturer: "Oatly", Weight: fptr(500)},
	} {
		c.nextID++
		p.ID = c.nextID
		p.NutritionalFact = model.NutritionalFact{"calories": fptr(50)}
		c.products[p.ID] = p
	}
	return c
}

func (c *catalogue) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, map[string]any{
		"status":    status,
		"message":   msg,
		"timeStamp": time.Now().Format(time.RFC3339),
		"details":   details,
	})
}

func (c *catalogue) mint(user, role string) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user,
		"role": []map[string]string{{"authority": "ROLE_" + strings.ToUpper(role)}},
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-signing-key"))
	if err != nil {
		panic(err)
	}
	c.tokens[tok] = role
	return tok
}

func (c *catalogue) handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, fn func(w http.ResponseWriter, r *http.Request)) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.calls[pattern]++
			fn(w, r)
		})
	}

	handle("POST /api/v1/auth/authenticate", func(w http.ResponseWriter, r *http.Request) {
		var in model.AuthRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret" {
			writeError(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		role := model.RoleUser
		if in.Username == "admin" {
			role = model.RoleAdmin
		}
		writeJSON(w, http.StatusOK, model.AuthResponse{Token: c.mint(in.Username, role)})
	})
	handle("POST /api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var in model.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Username == "taken" {
			writeError(w, http.StatusConflict, "Username is already taken")
			return
		}
		writeJSON(w, http.StatusOK, model.AuthResponse{Token: c.mint(in.Username, in.Role)})
	})

	handle("GET /api/v1/products", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := c.auth(w, r, false); !ok {
			return
		}
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		size, _ := strconv.Atoi(q.Get("size"))
		if size <= 0 {
			size = 10
		}
		rows := c.sorted(q.Get("sort"))
		total := len(rows)
		from, to := min(page*size, total), min((page+1)*size, total)
		writeJSON(w, http.StatusOK, model.Page{
			Content:       rows[from:to],
			TotalPages:    (total + size - 1) / size,
			TotalElements: int64(total),
			Number:        page,
			Size:          size,
		})
	})
	handle("GET /api/v1/products/search", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := c.auth(w, r, false); !ok {
			return
		}
		term := strings.ToLower(r.URL.Query().Get("query"))
		var hits []model.Product
		for _, p := range c.sorted("id,asc") {
			if strings.Contains(strings.ToLower(p.Name), term) ||
				strings.Contains(strings.ToLower(p.Manufacturer), term) ||
				strings.Contains(p.GTIN, term) {
				hits = append(hits, p)
			}
		}
		if len(hits) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, model.Page{Content: hits, TotalPages: 1, TotalElements: int64(len(hits)), Size: len(hits)})
	})
	handle("GET /api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := c.auth(w, r, false); !ok {
			return
		}
		p, ok := c.lookup(w, r)
		if ok {
			writeJSON(w, http.StatusOK, p)
		}
	})
	handle("POST /api/v1/products", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := c.auth(w, r, true); !ok {
			return
		}
		in, ok := decodeProduct(w, r)
		if !ok {
			return
		}
		c.nextID++
		p := model.Product{ID: c.nextID, Name: in.Name, Manufacturer: in.Manufacturer, Weight: in.Weight, GTIN: in.GTIN, NutritionalFact: in.NutritionalFact}
		c.products[p.ID] = p
		writeJSON(w, http.StatusCreated, p)
	})
	handle("PATCH /api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := c.auth(w, r, true); !ok {
			return
		}
		p, ok := c.lookup(w, r)
		if !ok {
			return
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			if _, hdr, err := r.FormFile("image"); err == nil {
				p.PhotoURL = "/images/" + hdr.Filename
			}
			if r.FormValue("product") == "" {
				c.products[p.ID] = p
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		in, ok := decodeProduct(w, r)
		if !ok {
			return
		}
		p.Name, p.Manufacturer, p.Weight, p.GTIN, p.NutritionalFact = in.Name, in.Manufacturer, in.Weight, in.GTIN, in.NutritionalFact
		c.products[p.ID] = p
		writeJSON(w, http.StatusOK, p)
	})
	handle("DELETE /api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := c.auth(w, r, true); !ok {
			return
		}
		p, ok := c.lookup(w, r)
		if !ok {
			return
		}
		delete(c.products, p.ID)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (c *catalogue) auth(w http.ResponseWriter, r *http.Request, admin bool) (string, bool) {
	role, ok := c.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok || (admin && role != model.RoleAdmin) {
		writeError(w, http.StatusForbidden, "Access denied")
		return "", false
	}
	return role, true
}

func (c *catalogue) lookup(w http.ResponseWriter, r *http.Request) (model.Product, bool) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	p, ok := c.products[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Product with id %d not found", id))
	}
	return p, ok
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (model.ProductInput, bool) {
	var in model.ProductInput
	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		body = strings.NewReader(r.FormValue("product"))
	}
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON")
		return in, false
	}
	if strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "Validation failed!", "name: must not be blank")
		return in, false
	}
	return in, true
}

func (c *catalogue) sorted(spec string) []model.Product {
	key, dir, err := model.ParseSort(spec)
	if err != nil {
		key, dir = "id", model.Asc
	}
	rows := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		rows = append(rows, p)
	}
	less := func(a, b model.Product) bool {
		switch key {
		case "name":
			return a.Name < b.Name
		case "manufacturer":
			if a.Manufacturer != b.Manufacturer {
				return a.Manufacturer < b.Manufacturer
			}
		}
		return a.ID < b.ID
	}
	sort.Slice(rows, func(i, j int) bool {
		if dir == model.Desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
	return rows
}

// cliEnv runs pmcli against a fresh catalogue with an isolated config dir.
type cliEnv struct {
	t   *testing.T
	cat *catalogue
	api string
	cfg string
}

func newCLIEnv(t *testing.T, configYAML string) *cliEnv {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PM_API_URL", "")
	t.Setenv("PM_API_TIMEOUT", "")

	cat := newCatalogue()
	srv := httptest.NewServer(cat.handler())
	t.Cleanup(srv.Close)

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(configYAML), 0o600))
	return &cliEnv{t: t, cat: cat, api: srv.URL + "/api/v1", cfg: cfg}
}

func (e *cliEnv) runIn(stdin string, args ...string) (string, string, int) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--config", e.cfg, "--api", e.api, "--log-level", "error"}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), code
}

func (e *cliEnv) run(args ...string) (string, string, int) {
	e.t.Helper()
	return e.runIn("", args...)
}

func (e *cliEnv) login(user string) {
	e.t.Helper()
	out, errOut, code := e.run("login", "-u", user, "-p", "secret")
	require.Equal(e.t, 0, code, errOut)
	require.Equal(e.t, "ok\n", out)
}

// Package model defines the catalogue entities shared by the client layers.
package model

import (
	"fmt"
	"strings"
)

// Identity is the current session as seen by the rest of the client.
// The zero value is the anonymous session.
type Identity struct {
	Username string
	Role     string
	Token    string
}

// Authenticated reports whether a token is held.
func (i Identity) Authenticated() bool { return i.Token != "" }

// Roles accepted at registration.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsAdmin reports whether role names the admin role ("admin" or the
// server's authority form "ROLE_ADMIN").
func IsAdmin(role string) bool {
	r := strings.ToUpper(strings.TrimSpace(role))
	return r == "ADMIN" || r == "ROLE_ADMIN"
}

// AuthRequest is the login payload.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AuthResponse is the server payload for login and signup.
type AuthResponse struct {
	Token string `json:"token"`
}

// NutritionalFact maps a nutrient key to its value; nil means unknown.
type NutritionalFact map[string]*float64

// Nutrient describes one editable nutritional field.
type Nutrient struct {
	Key   string
	Label string
	Unit  string
}

// Nutrients lists the known nutritional keys in display order.
var Nutrients = []Nutrient{
	{Key: "calories", Label: "Calories per 100g", Unit: "kcal"},
	{Key: "kilojoules", Label: "Kilojoules per 100g", Unit: "kJ"},
	{Key: "fat", Label: "Fat", Unit: "g"},
	{Key: "carbohydrates", Label: "Carbohydrates", Unit: "g"},
	{Key: "sugars", Label: "Sugars", Unit: "g"},
	{Key: "polyols", Label: "Polyols", Unit: "g"},
	{Key: "fibers", Label: "Fibers", Unit: "g"},
	{Key: "protein", Label: "Protein", Unit: "g"},
	{Key: "sodium", Label: "Sodium", Unit: "mg"},
	{Key: "vitaminC", Label: "Vitamin C", Unit: "mg"},
	{Key: "calcium", Label: "Calcium", Unit: "mg"},
}

// IsNutrient reports whether key is a known nutrient.
func IsNutrient(key string) bool {
	for _, n := range Nutrients {
		if n.Key == key {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (n NutritionalFact) Clone() NutritionalFact {
	if n == nil {
		return nil
	}
	out := make(NutritionalFact, len(n))
	for k, v := range n {
		if v != nil {
			c := *v
			v = &c
		}
		out[k] = v
	}
	return out
}

// Product is a catalogue record owned by the server.
type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Manufacturer    string          `json:"manufacturer"`
	Weight          *float64        `json:"weight"`
	GTIN            string          `json:"gtin,omitempty"`
	PhotoURL        string          `json:"photoUrl,omitempty"`
	NutritionalFact NutritionalFact `json:"nutritionalFact"`
}

// Clone returns a deep copy.
func (p Product) Clone() Product {
	if p.Weight != nil {
		w := *p.Weight
		p.Weight = &w
	}
	p.NutritionalFact = p.NutritionalFact.Clone()
	return p
}

// ProductInput is the create/update payload.
type ProductInput struct {
	Name            string          `json:"name"`
	Manufacturer    string          `json:"manufacturer"`
	Weight          *float64        `json:"weight"`
	GTIN            string          `json:"gtin,omitempty"`
	NutritionalFact NutritionalFact `json:"nutritionalFact"`
}

// Page is one slice of a server-paginated collection.
type Page struct {
	Content       []Product `json:"content"`
	TotalPages    int       `json:"totalPages"`
	TotalElements int64     `json:"totalElements"`
	Number        int       `json:"number"`
	Size          int       `json:"size"`
}

// EmptyPage is what a search without matches yields.
func EmptyPage() Page { return Page{Content: []Product{}} }

// SortDirection is asc or desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Flip returns the opposite direction.
func (d SortDirection) Flip() SortDirection {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Query is the list controller state. Page is 1-based.
type Query struct {
	Page     int
	PageSize int
	SortKey  string
	SortDir  SortDirection
	Search   string
}

// SortParam renders the sort as the server expects it ("name,asc").
func (q Query) SortParam() string {
	if q.SortKey == "" {
		return ""
	}
	return fmt.Sprintf("%s,%s", q.SortKey, q.SortDir)
}

// ParseSort splits "key,dir" into its parts; direction defaults to asc.
func ParseSort(s string) (string, SortDirection, error) {
	key, dir, _ := strings.Cut(s, ",")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", fmt.Errorf("invalid sort %q", s)
	}
	switch d := SortDirection(strings.ToLower(strings.TrimSpace(dir))); d {
	case "":
		return key, Asc, nil
	case Asc, Desc:
		return key, d, nil
	default:
		return "", "", fmt.Errorf("invalid sort direction %q", dir)
	}
}

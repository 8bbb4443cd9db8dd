package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token fields the client relies on.
type Claims struct {
	jwt.RegisteredClaims
	Role RoleClaim `json:"role"`
}

// RoleClaim accepts a plain string, a list of strings, or the authority
// list form [{"authority":"ROLE_ADMIN"}]; it keeps the first entry.
type RoleClaim string

func (r *RoleClaim) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = RoleClaim(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		if len(list) > 0 {
			*r = RoleClaim(list[0])
		}
		return nil
	}
	var auths []struct {
		Authority string `json:"authority"`
	}
	if err := json.Unmarshal(b, &auths); err == nil {
		if len(auths) > 0 {
			*r = RoleClaim(auths[0].Authority)
		}
		return nil
	}
	return fmt.Errorf("unsupported role claim %s", b)
}

// DecodeClaims parses token without verifying its signature: the server is
// the authority, the client only reads subject and role.
func DecodeClaims(token string) (Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return Claims{}, err
	}
	if c.Subject == "" {
		return Claims{}, errors.New("token has no subject")
	}
	return c, nil
}

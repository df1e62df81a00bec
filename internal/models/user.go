package models

import "github.com/golang-jwt/jwt/v5"

// User represents a row of the 'users' table. Username is the canonical
// identity throughout the pipeline; it is lowercased once at registration.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	DisplayName  string `db:"display_name" json:"display_name"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         string `db:"role" json:"role"`
}

// Claims are the JWT claims carried by authenticated requests and socket
// upgrades.
type Claims struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

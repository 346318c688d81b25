package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are JWT claims carried by every authenticated request and socket
type UserClaims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// RegisterRequest is the request body for account creation
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login or registration
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

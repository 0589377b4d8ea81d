// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package httpresolver implements a Resolve collaborator that hands
// a ConflictReport off to a remote review service over HTTP: the
// client side posts the report and long-polls for completion; the
// server side (Server) is a minimal reference review service an
// operator can run to receive reports and post resolutions back.
package httpresolver

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload both sides of the resolver protocol sign
// and verify requests with.
type Claims struct {
	Element string `json:"element"`
	jwt.RegisteredClaims
}

// GenerateToken signs a short-lived token scoped to element with
// secret (HS256, matching the teacher's own bearer-token scheme).
func GenerateToken(secret []byte, element string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := Claims{
		Element: element,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

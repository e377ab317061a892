package utils

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgrijalva/jwt-go"
)

// JwtCustomClaim is the claim set issued by the external identity provider.
// Subject carries the user id that is recorded as performer.
type JwtCustomClaim struct {
	Role string `json:"role,omitempty"`
	jwt.StandardClaims
}

func getJwtSecret() []byte {
	return []byte(os.Getenv("API_SECRET"))
}

func JwtValidate(token string) (*JwtCustomClaim, error) {
	secret := getJwtSecret()
	if len(secret) == 0 {
		return nil, errors.New("API_SECRET is not configured")
	}
	claims := &JwtCustomClaim{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

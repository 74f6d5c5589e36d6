package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeviceTokenManager signs and verifies the device tokens that scope a
// client's stored profile and contacts.
type DeviceTokenManager struct {
	Secret []byte
	TTL    time.Duration
}

func NewDeviceTokenManager(secret string, ttl time.Duration) *DeviceTokenManager {
	return &DeviceTokenManager{Secret: []byte(secret), TTL: ttl}
}

type DeviceClaims struct {
	DeviceID string `json:"did"`
	jwt.RegisteredClaims
}

func (m *DeviceTokenManager) Generate(deviceID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.TTL)
	claims := &DeviceClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

func (m *DeviceTokenManager) Parse(tokenStr string) (*DeviceClaims, error) {
	claims := &DeviceClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.DeviceID == "" {
		return nil, errors.New("token has no device id")
	}
	return claims, nil
}

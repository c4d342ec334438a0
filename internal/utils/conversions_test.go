package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tarquiniy/telegram-auth-bridge/internal/utils"
)

func TestToStringMap(t *testing.T) {
	got := utils.ToStringMap(map[string]any{
		"id":         float64(42), // JSON numbers decode as float64
		"auth_date":  float64(1700000000),
		"first_name": "Ada",
		"enabled":    true,
		"photo_url":  nil,
	})

	require.Equal(t, map[string]string{
		"id":         "42",
		"auth_date":  "1700000000",
		"first_name": "Ada",
		"enabled":    "true",
	}, got)
}

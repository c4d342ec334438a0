package telegram

import (
	"strconv"

	"github.com/pkg/errors"
)

// Claim fields set by the Telegram login widget.
const (
	ClaimID        = "id"
	ClaimHash      = "hash"
	ClaimAuthDate  = "auth_date"
	ClaimFirstName = "first_name"
	ClaimLastName  = "last_name"
	ClaimUsername  = "username"
	ClaimPhotoURL  = "photo_url"
)

// TelegramID extracts the platform's numeric user id from a claims map.
func TelegramID(claims map[string]string) (int64, error) {
	raw, ok := claims[ClaimID]
	if !ok || raw == "" {
		return 0, errors.New("[TelegramID] missing id claim")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "[TelegramID] id claim is not numeric")
	}
	return id, nil
}

package profile

import (
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
)

// TOTPCode generates the current 2FA code for a profile's secret and the
// seconds left before it rotates.
func TOTPCode(secret string, now time.Time) (code string, remaining int, err error) {
	if secret == "" {
		return "", 0, fmt.Errorf("no 2fa secret configured")
	}
	code, err = totp.GenerateCode(secret, now)
	if err != nil {
		return "", 0, fmt.Errorf("generate totp: %w", err)
	}
	remaining = 30 - int(now.Unix()%30)
	return code, remaining, nil
}

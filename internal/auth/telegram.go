package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// TelegramAuthenticator accepts "Authorization: tma <initData>" from a Telegram Mini App.
type TelegramAuthenticator struct {
	botToken string
	maxAge   time.Duration
}

func NewTelegramAuthenticator(botToken string, maxAge time.Duration) *TelegramAuthenticator {
	return &TelegramAuthenticator{botToken: botToken, maxAge: maxAge}
}

func (a *TelegramAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	scheme, initData := authorizationScheme(r)
	if scheme != "tma" || initData == "" {
		return Identity{}, ErrNoCredentials
	}
	if a.botToken == "" {
		return Identity{}, errors.New("telegram authentication is not configured")
	}

	if err := initdata.Validate(initData, a.botToken, a.maxAge); err != nil {
		return Identity{}, fmt.Errorf("invalid init data: %w", err)
	}
	data, err := initdata.Parse(initData)
	if err != nil {
		return Identity{}, fmt.Errorf("parse init data: %w", err)
	}
	if data.User.ID == 0 {
		return Identity{}, errors.New("init data carries no user")
	}

	return Identity{
		ExternalID: "telegram:" + strconv.FormatInt(data.User.ID, 10),
		Provider:   "telegram",
	}, nil
}

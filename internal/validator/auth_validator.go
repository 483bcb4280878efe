package validator

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")

	// channel_idが不正
	ErrInvalidChannel = errors.New("invalid channel_id")
)

// bcryptは72バイトまで
const maxCredentialLen = 72

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)

// 会員登録の入力を検証
func ValidateRegister(username string, credential string, name string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidInput
	}
	if credential == "" || len(credential) > maxCredentialLen {
		return ErrInvalidInput
	}
	if len(name) > 255 {
		return ErrInvalidInput
	}
	return nil
}

// ログインの入力を検証（中身の照合はusecase）
func ValidateLogin(username string, credential string) error {
	if strings.TrimSpace(username) == "" || credential == "" {
		return ErrInvalidInput
	}
	return nil
}

// SSEで渡したchannel_idはUUID
func ValidateChannelID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidChannel
	}
	return nil
}

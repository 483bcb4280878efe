package usecase

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/config"
)

// 保存形式と照合方法をまとめたもの
type CredentialScheme interface {
	// 登録時に保存する値
	Hash(plain string) (string, error)
	// stored（保存値）とpresented（入力値）の照合
	Verify(stored string, presented string) bool
	Name() string
}

// plainは保存値と入力値の完全一致（ハッシュ化しない）
type PlainCredentials struct{}

func (PlainCredentials) Hash(plain string) (string, error) { return plain, nil }

func (PlainCredentials) Verify(stored string, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func (PlainCredentials) Name() string { return config.CredentialModePlain }

type BcryptCredentials struct {
	Cost int
}

func (b BcryptCredentials) Hash(plain string) (string, error) {
	cost := b.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (BcryptCredentials) Verify(stored string, presented string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
}

func (BcryptCredentials) Name() string { return config.CredentialModeBcrypt }

// CREDENTIAL_MODEから選ぶ
func NewCredentialScheme(mode string, cost int) (CredentialScheme, error) {
	switch mode {
	case "", config.CredentialModePlain:
		return PlainCredentials{}, nil
	case config.CredentialModeBcrypt:
		return BcryptCredentials{Cost: cost}, nil
	}
	return nil, fmt.Errorf("unknown credential mode %q", mode)
}

// Package jwt реализует генерацию и парсинг JWT токенов с пользовательскими claim полями.
package jwt

import "time"

// Maker описывает интерфейс для генерации и проверки JWT токенов.
type Maker interface {
	// GenerateToken создает JWT с именем пользователя, ролью и UID.
	GenerateToken(username, role, userUID string) (string, error)
	// ParseToken проверяет подпись токена и возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на основе симметричного секретного ключа.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewMaker создает новый MakerImpl с заданными ключом и временем жизни токена.
func NewMaker(secretKey string, tokenTTL time.Duration) *MakerImpl {
	return &MakerImpl{secretKey: secretKey, tokenTTL: tokenTTL}
}

// argon2.go — проверка пароля по хэшу в формате
// $argon2id$v=19$m=<память>,t=<итерации>,p=<потоки>$<соль>$<хэш>.
// Хэш генерируется отдельной утилитой и попадает в конфигурацию,
// сам пароль нигде не хранится.
package admin

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// VerifyPassword сравнивает пароль с закодированным argon2id-хэшем.
// Ошибка означает битый формат хэша, несовпадение пароля — (false, nil).
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("неверный формат хэша")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("неверная версия в хэше: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("неподдерживаемая версия argon2: %d", version)
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("неверные параметры в хэше: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("неверная соль в хэше: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("неверный хэш: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// EncodeHash собирает строку хэша из параметров. Используется утилитой
// генерации и тестами.
func EncodeHash(salt, hash []byte, memory, iterations uint32, parallelism uint8) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

package token

import (
	"errors"
	"strings"
	"testing"
)

const testSecret = "test-secret-key-not-for-production!!"

// TestIssueVerify проверяет круговую выдачу и проверку токена.
func TestIssueVerify(t *testing.T) {
	g := New(testSecret)

	tok, err := g.Issue(42, 7, "acme")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}
	if tok == "" {
		t.Fatal("токен не должен быть пустым")
	}

	if err := g.Verify(tok, 42, 7, "acme"); err != nil {
		t.Errorf("корректный токен должен проходить проверку: %v", err)
	}
}

// TestVerify_EmptyToken проверяет отказ при отсутствии токена.
func TestVerify_EmptyToken(t *testing.T) {
	g := New(testSecret)

	if err := g.Verify("", 42, 7, "acme"); !errors.Is(err, ErrForbidden) {
		t.Errorf("ожидалась ErrForbidden, получено %v", err)
	}
}

// TestVerify_TamperedToken проверяет, что изменение одного байта
// делает токен недействительным.
func TestVerify_TamperedToken(t *testing.T) {
	g := New(testSecret)

	tok, err := g.Issue(42, 7, "acme")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	// Меняем один символ в части подписи
	b := []byte(tok)
	last := len(b) - 1
	if b[last] == 'A' {
		b[last] = 'B'
	} else {
		b[last] = 'A'
	}

	if err := g.Verify(string(b), 42, 7, "acme"); !errors.Is(err, ErrForbidden) {
		t.Errorf("искажённый токен должен давать ErrForbidden, получено %v", err)
	}
}

// TestVerify_CrossTenant проверяет, что токен tenant-а A
// не проходит проверку у tenant-а B при том же номере резервации.
func TestVerify_CrossTenant(t *testing.T) {
	g := New(testSecret)

	tok, err := g.Issue(42, 7, "acme")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	if err := g.Verify(tok, 42, 7, "globex"); !errors.Is(err, ErrForbidden) {
		t.Errorf("токен другого tenant-а должен давать ErrForbidden, получено %v", err)
	}
}

// TestVerify_FieldMismatch проверяет несовпадение полей запроса и токена.
func TestVerify_FieldMismatch(t *testing.T) {
	g := New(testSecret)

	tok, err := g.Issue(42, 7, "acme")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	tests := []struct {
		name          string
		reservationID int64
		tenantID      int64
	}{
		{"другая резервация", 43, 7},
		{"другой tenant id", 42, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Verify(tok, tt.reservationID, tt.tenantID, "acme")
			if !errors.Is(err, ErrForbidden) {
				t.Errorf("ожидалась ErrForbidden, получено %v", err)
			}
		})
	}
}

// TestVerify_DifferentSecret проверяет несовпадение секретов приложений.
func TestVerify_DifferentSecret(t *testing.T) {
	tok, err := New(testSecret).Issue(42, 7, "acme")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	other := New("another-secret-key-thirty-two-bytes!")
	if err := other.Verify(tok, 42, 7, "acme"); !errors.Is(err, ErrForbidden) {
		t.Errorf("токен с чужим секретом должен давать ErrForbidden, получено %v", err)
	}
}

// TestVerify_UnsignedAlgorithmRejected проверяет отказ токену alg=none.
func TestVerify_UnsignedAlgorithmRejected(t *testing.T) {
	g := New(testSecret)

	// {"alg":"none","typ":"JWT"} . {"rid":42,"ten":7} . пустая подпись
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJyaWQiOjQyLCJ0ZW4iOjd9."
	if err := g.Verify(unsigned, 42, 7, "acme"); !errors.Is(err, ErrForbidden) {
		t.Errorf("токен без подписи должен давать ErrForbidden, получено %v", err)
	}
}

// TestVerifyOrMint_Production проверяет, что production не выпускает
// токены прозрачно.
func TestVerifyOrMint_Production(t *testing.T) {
	g := New(testSecret)

	if _, err := g.VerifyOrMint(ProductionEnvironment(), "", 42, 7, "acme"); !errors.Is(err, ErrForbidden) {
		t.Errorf("production с пустым токеном должен давать ErrForbidden, получено %v", err)
	}
}

// TestVerifyOrMint_DevelopmentMint проверяет прозрачный выпуск
// при пустом токене в development.
func TestVerifyOrMint_DevelopmentMint(t *testing.T) {
	g := New(testSecret)

	tok, err := g.VerifyOrMint(DevelopmentEnvironment(), "", 42, 7, "acme")
	if err != nil {
		t.Fatalf("development должен выпускать токен прозрачно: %v", err)
	}
	if tok == "" {
		t.Fatal("выпущенный токен не должен быть пустым")
	}

	// Выпущенный токен пригоден для повторного использования
	if err := g.Verify(tok, 42, 7, "acme"); err != nil {
		t.Errorf("выпущенный токен должен проходить строгую проверку: %v", err)
	}
}

// TestVerifyOrMint_DevelopmentStillVerifies проверяет, что в development
// предъявленный токен всё равно проверяется строго.
func TestVerifyOrMint_DevelopmentStillVerifies(t *testing.T) {
	g := New(testSecret)

	_, err := g.VerifyOrMint(DevelopmentEnvironment(), "не-токен", 42, 7, "acme")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("предъявленный мусорный токен должен давать ErrForbidden даже в development, получено %v", err)
	}
}

// TestVerifyOrMint_PassThrough проверяет возврат того же токена
// при успешной проверке.
func TestVerifyOrMint_PassThrough(t *testing.T) {
	g := New(testSecret)

	tok, err := g.Issue(42, 7, "acme")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	got, err := g.VerifyOrMint(ProductionEnvironment(), tok, 42, 7, "acme")
	if err != nil {
		t.Fatalf("проверка корректного токена: %v", err)
	}
	if got != tok {
		t.Error("при успешной проверке должен возвращаться предъявленный токен")
	}
}

// TestIssue_TokenShape проверяет структуру JWT (три части).
func TestIssue_TokenShape(t *testing.T) {
	g := New(testSecret)

	tok, err := g.Issue(1, 1, "acme")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}
	if parts := strings.Split(tok, "."); len(parts) != 3 {
		t.Errorf("JWT должен состоять из трёх частей, получено %d", len(parts))
	}
}

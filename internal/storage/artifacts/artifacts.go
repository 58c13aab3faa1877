// Пакет artifacts — операции с артефактами контракта на диске.
// Детерминированные tenant-scoped пути для четырёх видов артефактов
// (базовый PDF, подписанный PDF, PNG подписи, JSON аудита),
// ordered legacy fallback (только чтение), атомарная запись
// temp → fsync → rename и идемпотентная очистка.
package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store — управление артефактами контрактов на диске.
type Store struct {
	// dataDir — корневая директория артефактов (CM_DATA_DIR)
	dataDir string
	// legacyDir — директория артефактов до tenant-скоупинга (CM_LEGACY_DIR).
	// Используется только для чтения; пустая строка — fallback отключён.
	legacyDir string
}

// Paths — детерминированные пути четырёх артефактов резервации.
type Paths struct {
	// Base — базовый (неподписанный) PDF
	Base string
	// Signed — подписанный PDF
	Signed string
	// SignaturePNG — сырое изображение подписи (аудит)
	SignaturePNG string
	// Audit — JSON-запись аудита подписания
	Audit string
}

// New создаёт Store. Проверяет и создаёт корневую директорию,
// если она не существует.
func New(dataDir, legacyDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir, legacyDir: legacyDir}, nil
}

// DataDir возвращает путь к корневой директории артефактов.
func (s *Store) DataDir() string {
	return s.dataDir
}

// contractsDir — директория PDF контрактов tenant-а.
func (s *Store) contractsDir(tenantSlug string) string {
	return filepath.Join(s.dataDir, "contracts", tenantSlug)
}

// signaturesDir — директория изображений подписей tenant-а.
func (s *Store) signaturesDir(tenantSlug string) string {
	return filepath.Join(s.dataDir, "signatures", tenantSlug)
}

// Paths возвращает детерминированные пути артефактов резервации.
// Директории создаются при записи (WriteFile), не здесь.
func (s *Store) Paths(tenantSlug string, reservationID int64) Paths {
	cd := s.contractsDir(tenantSlug)
	return Paths{
		Base:         filepath.Join(cd, fmt.Sprintf("contrato_reserva_%d.pdf", reservationID)),
		Signed:       filepath.Join(cd, fmt.Sprintf("contrato_reserva_%d_SIGNED.pdf", reservationID)),
		SignaturePNG: filepath.Join(s.signaturesDir(tenantSlug), fmt.Sprintf("assinatura_%d.png", reservationID)),
		Audit:        filepath.Join(cd, fmt.Sprintf("contrato_reserva_%d_audit.json", reservationID)),
	}
}

// legacyBase — путь базового PDF в legacy-раскладке (до tenant-скоупинга).
func (s *Store) legacyBase(reservationID int64) string {
	if s.legacyDir == "" {
		return ""
	}
	return filepath.Join(s.legacyDir, fmt.Sprintf("contrato_%d.pdf", reservationID))
}

// legacySigned — путь подписанного PDF в legacy-раскладке.
func (s *Store) legacySigned(reservationID int64) string {
	if s.legacyDir == "" {
		return ""
	}
	return filepath.Join(s.legacyDir, fmt.Sprintf("contrato_%d_signed.pdf", reservationID))
}

// ResolveBase возвращает существующий базовый PDF: сначала канонический
// путь, затем legacy (только чтение). Стратегии пробуются по порядку.
func (s *Store) ResolveBase(tenantSlug string, reservationID int64) (string, bool) {
	return resolveFirst(
		s.Paths(tenantSlug, reservationID).Base,
		s.legacyBase(reservationID),
	)
}

// ResolveSigned возвращает существующий подписанный PDF:
// канонический путь, затем legacy.
func (s *Store) ResolveSigned(tenantSlug string, reservationID int64) (string, bool) {
	return resolveFirst(
		s.Paths(tenantSlug, reservationID).Signed,
		s.legacySigned(reservationID),
	)
}

// resolveFirst возвращает первый существующий файл из списка кандидатов.
func resolveFirst(candidates ...string) (string, bool) {
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// WriteFile атомарно записывает data по пути path.
// Паттерн: temp файл → запись → fsync → atomic rename.
// Родительская директория создаётся при необходимости.
// При ошибке temp файл удаляется, существующий артефакт не повреждается.
func (s *Store) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", filepath.Dir(path), err)
	}

	// Короткий UUID в имени: два конкурентных записывающих не затирают
	// временные файлы друг друга.
	tmpPath := path + ".tmp-" + uuid.New().String()[:8]
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Checksum вычисляет SHA-256 хэш существующего файла.
func (s *Store) Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("ошибка открытия файла %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("ошибка вычисления checksum %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashBytes вычисляет SHA-256 хэш байтового среза.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Cleanup удаляет все четыре вида артефактов резервации.
// Отсутствующие файлы — не ошибка (идемпотентное удаление).
// Legacy-артефакты не трогаются (fallback только для чтения).
func (s *Store) Cleanup(tenantSlug string, reservationID int64) error {
	paths := s.Paths(tenantSlug, reservationID)
	for _, p := range []string{paths.Base, paths.Signed, paths.SignaturePNG, paths.Audit} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("ошибка удаления артефакта %s: %w", p, err)
		}
	}
	return nil
}

// Exists проверяет существование файла по абсолютному пути.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

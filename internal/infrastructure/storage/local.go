// Package storage guarda los artefactos del comprobante (XML, XML firmado y RIDE).
// LocalStore escribe sobre un afero.Fs (disco en producción, memoria en tests);
// S3Store sobre cualquier servicio compatible con S3.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

var _ billing.ArtifactStore = (*LocalStore)(nil)

// LocalStore almacenamiento en sistema de archivos bajo un directorio base.
type LocalStore struct {
	fs      afero.Fs
	baseDir string
}

// NewLocalStore crea el store. Con fs nil usa el disco del sistema operativo.
func NewLocalStore(fs afero.Fs, baseDir string) (*LocalStore, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if baseDir == "" {
		baseDir = "."
	}
	if err := fs.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("crear directorio de artefactos: %w", err)
	}
	return &LocalStore{fs: fs, baseDir: baseDir}, nil
}

// Save escribe en un archivo temporal y lo renombra, así un lector nunca ve un archivo a medias.
func (s *LocalStore) Save(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("crear directorio %s: %w", filepath.Dir(key), err)
	}
	tmp := full + ".tmp-" + uuid.NewString()
	if err := afero.WriteFile(s.fs, tmp, data, 0o640); err != nil {
		return fmt.Errorf("escribir %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, full); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("mover %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, key)
		}
		return nil, fmt.Errorf("leer %s: %w", key, err)
	}
	return data, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, full)
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

// cleanKey normaliza la clave (separador "/") y rechaza rutas absolutas o que escapen con "..".
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: clave de artefacto vacía", domain.ErrInvalidArgument)
	}
	k := strings.ReplaceAll(key, "\\", "/")
	if strings.HasPrefix(k, "/") {
		return "", fmt.Errorf("%w: clave de artefacto absoluta %q", domain.ErrInvalidArgument, key)
	}
	clean := path.Clean(k)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: clave de artefacto inválida %q", domain.ErrInvalidArgument, key)
	}
	return clean, nil
}

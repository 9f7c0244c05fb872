package training

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
)

// workDir: временный каталог одной задачи обучения.
type workDir struct {
	path string
}

func newWorkDir(base string) (*workDir, error) {
	path, err := os.MkdirTemp(base, "training-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &workDir{path: path}, nil
}

// Remove удаляет каталог со всем содержимым.
func (w *workDir) Remove(log *slog.Logger) {
	if err := os.RemoveAll(w.path); err != nil {
		log.Warn("failed to remove work dir", slog.String("path", w.path), sl.Err(err))
	}
}

// Open открывает файл внутри каталога.
func (w *workDir) Open(name string) (*os.File, error) {
	return os.Open(filepath.Join(w.path, name))
}

// Pack сохраняет фотографии в каталог и собирает из них архив <name>.zip.
// Возвращает имя архива относительно каталога.
func (w *workDir) Pack(name string, uploads []Upload) (string, error) {
	files := make([]string, 0, len(uploads))
	for i, u := range uploads {
		staged, err := w.stage(i, u)
		if err != nil {
			return "", err
		}
		files = append(files, staged)
	}

	archive := name + ".zip"
	out, err := os.Create(filepath.Join(w.path, archive))
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(out)
	for _, f := range files {
		if err := addFile(zw, w.path, f); err != nil {
			_ = zw.Close()
			_ = out.Close()
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("finish archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	return archive, nil
}

// stage копирует фотографию на диск под безопасным уникальным именем.
func (w *workDir) stage(i int, u Upload) (string, error) {
	name := strconv.Itoa(i+1) + "_" + safeName(u.Filename)
	src, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %q: %w", u.Filename, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(w.path, name))
	if err != nil {
		return "", fmt.Errorf("stage upload %q: %w", u.Filename, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("stage upload %q: %w", u.Filename, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("stage upload %q: %w", u.Filename, err)
	}
	return name, nil
}

func addFile(zw *zip.Writer, dir, name string) error {
	src, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("archive %q: %w", name, err)
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("archive %q: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("archive %q: %w", name, err)
	}
	return nil
}

func safeName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "image"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}

package modelrepo

// repository.go — modelos persistidos en disco.
//
//   <models>/<SYMBOL>_<yyMMdd_HHmmss>/<SYMBOL>_<yyMMdd_HHmmss>.model
//   <models>/<SYMBOL>_<yyMMdd_HHmmss>/<SYMBOL>_<yyMMdd_HHmmss>.json
//
// El blob es opaco (checkpoint del engine); el .json es domain.ModelMetadata.
// Latest recorre el árbol y elige el .model más reciente del símbolo.

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
	"github.com/spf13/afero"
)

const (
	blobExt        = ".model"
	metaExt        = ".json"
	timestampFmt   = "060102_150405"
	metadataIndent = "  "
	maxSameSecond  = 100
)

// Repository implementa ports.ModelRepository sobre un afero.Fs.
type Repository struct {
	fs   afero.Fs
	root string
	now  func() time.Time
}

var _ ports.ModelRepository = (*Repository)(nil)

// New crea un Repository con raíz en root.
func New(fs afero.Fs, root string) *Repository {
	return &Repository{fs: fs, root: root, now: time.Now}
}

// SetClock reemplaza el reloj usado para nombrar directorios.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// Save implementa ports.ModelRepository. Si algo falla el directorio nuevo se
// elimina completo.
func (r *Repository) Save(symbol string, checkpoint func(io.Writer) error, meta domain.ModelMetadata) (ref ports.ModelRef, err error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return ports.ModelRef{}, fmt.Errorf("modelrepo.Save: empty symbol: %w", domain.ErrConfiguration)
	}

	stamp, err := r.freeStamp(symbol, r.now().Format(timestampFmt))
	if err != nil {
		return ports.ModelRef{}, fmt.Errorf("modelrepo.Save: %w", err)
	}
	name := symbol + "_" + stamp
	ref = ports.ModelRef{
		Dir:       filepath.Join(r.root, name),
		BlobPath:  filepath.Join(r.root, name, name+blobExt),
		MetaPath:  filepath.Join(r.root, name, name+metaExt),
		Symbol:    symbol,
		Timestamp: stamp,
	}

	if err := r.fs.MkdirAll(ref.Dir, 0o755); err != nil {
		return ports.ModelRef{}, fmt.Errorf("modelrepo.Save: mkdir %s: %w", ref.Dir, err)
	}
	defer func() {
		if err != nil {
			r.fs.RemoveAll(ref.Dir)
		}
	}()

	if err := r.writeFile(ref.BlobPath, checkpoint); err != nil {
		return ports.ModelRef{}, fmt.Errorf("modelrepo.Save: blob: %w", err)
	}
	err = r.writeFile(ref.MetaPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", metadataIndent)
		return enc.Encode(meta)
	})
	if err != nil {
		return ports.ModelRef{}, fmt.Errorf("modelrepo.Save: metadata: %w", err)
	}
	return ref, nil
}

// Latest implementa ports.ModelRepository: de todos los .model cuyo nombre
// contiene el símbolo, el de mod time más reciente (el nombre desempata).
func (r *Repository) Latest(symbol string) (ports.ModelRef, domain.ModelMetadata, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	type candidate struct {
		path    string
		modTime time.Time
	}
	var found []candidate

	err := afero.Walk(r.fs, r.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.HasSuffix(name, blobExt) && strings.HasPrefix(name, symbol+"_") {
			found = append(found, candidate{path: path, modTime: info.ModTime()})
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return ports.ModelRef{}, domain.ModelMetadata{},
			fmt.Errorf("modelrepo.Latest: %s: no models dir %s: %w", symbol, r.root, domain.ErrDataNotFound)
	}
	if err != nil {
		return ports.ModelRef{}, domain.ModelMetadata{}, fmt.Errorf("modelrepo.Latest: walk %s: %w", r.root, err)
	}
	if len(found) == 0 {
		return ports.ModelRef{}, domain.ModelMetadata{},
			fmt.Errorf("modelrepo.Latest: no model for %s: %w", symbol, domain.ErrDataNotFound)
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].modTime.Equal(found[j].modTime) {
			return found[i].modTime.After(found[j].modTime)
		}
		return filepath.Base(found[i].path) > filepath.Base(found[j].path)
	})

	blob := found[0].path
	base := strings.TrimSuffix(filepath.Base(blob), blobExt)
	ref := ports.ModelRef{
		Dir:       filepath.Dir(blob),
		BlobPath:  blob,
		MetaPath:  strings.TrimSuffix(blob, blobExt) + metaExt,
		Symbol:    symbol,
		Timestamp: strings.TrimPrefix(base, symbol+"_"),
	}

	meta, err := r.readMetadata(ref.MetaPath)
	if err != nil {
		return ports.ModelRef{}, domain.ModelMetadata{}, fmt.Errorf("modelrepo.Latest: %w", err)
	}
	return ref, meta, nil
}

// Open implementa ports.ModelRepository.
func (r *Repository) Open(ref ports.ModelRef) (io.ReadCloser, error) {
	f, err := r.fs.Open(ref.BlobPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("modelrepo.Open: %s: %w", ref.BlobPath, domain.ErrDataNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("modelrepo.Open: %s: %w", ref.BlobPath, err)
	}
	return f, nil
}

// freeStamp devuelve stamp si <SYMBOL>_<stamp> no existe todavía; si no,
// el primer stamp_N libre (dos Save en el mismo segundo).
func (r *Repository) freeStamp(symbol, stamp string) (string, error) {
	candidate := stamp
	for n := 2; n <= maxSameSecond; n++ {
		exists, err := afero.Exists(r.fs, filepath.Join(r.root, symbol+"_"+candidate))
		if err != nil {
			return "", fmt.Errorf("stat %s_%s: %w", symbol, candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", stamp, n)
	}
	return "", fmt.Errorf("%d models for %s already saved at %s", maxSameSecond, symbol, stamp)
}

func (r *Repository) readMetadata(path string) (domain.ModelMetadata, error) {
	b, err := afero.ReadFile(r.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ModelMetadata{}, fmt.Errorf("metadata %s: %w", path, domain.ErrDataNotFound)
	}
	if err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("read metadata %s: %w", path, err)
	}
	var meta domain.ModelMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return domain.ModelMetadata{}, fmt.Errorf("decode metadata %s: %v: %w", path, err, domain.ErrModelLoad)
	}
	return meta, nil
}

func (r *Repository) writeFile(path string, fill func(io.Writer) error) error {
	f, err := r.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

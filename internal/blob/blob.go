// Package blob stores published job artifacts under the library directory
// and hands out short-lived download tokens for them.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// ErrNotFound indicates the ref (or token) does not resolve to an artifact.
var ErrNotFound = errors.New("blob not found")

// Store is the artifact sink the pipeline publishes into. Refs are opaque
// strings relative to the store root and safe to persist on a job.
type Store interface {
	// Put copies localPath into the store under folder and returns its ref.
	Put(localPath, folder string) (string, error)
	// Open opens the artifact behind ref for reading.
	Open(ref string) (io.ReadCloser, error)
	// Delete removes the artifact behind ref. Missing refs are not an error.
	Delete(ref string) error
	// SignedURL mints a single-use download token for ref, valid for ttl.
	SignedURL(ref string, ttl time.Duration) (string, error)
	// Resolve redeems a token, consuming it. Returns ErrNotFound for
	// unknown, expired, or already-used tokens.
	Resolve(token string) (string, error)
}

// LocalStore keeps artifacts on the local filesystem rooted at the library
// directory. Download tokens live in an in-process cache and do not survive
// a restart, which is acceptable for their short lifetime.
type LocalStore struct {
	root   string
	tokens *gocache.Cache
}

// NewLocalStore creates a store rooted at root. ttl bounds how long minted
// tokens stay redeemable by default.
func NewLocalStore(root string, ttl time.Duration) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blob store root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure blob root: %w", err)
	}
	return &LocalStore{
		root:   root,
		tokens: gocache.New(ttl, 2*ttl),
	}, nil
}

// Put copies localPath into folder under the store root. The ref keeps the
// source base name prefixed with a short random component so repeated
// uploads of the same file cannot collide.
func (s *LocalStore) Put(localPath, folder string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open source artifact: %w", err)
	}
	defer src.Close()

	name := uuid.NewString()[:8] + "-" + filepath.Base(localPath)
	ref := filepath.ToSlash(filepath.Join(filepath.Clean(folder), name))
	abs, err := s.absPath(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("ensure artifact dir: %w", err)
	}

	dst, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(abs)
		return "", fmt.Errorf("copy artifact: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	return ref, nil
}

// Open opens the artifact behind ref.
func (s *LocalStore) Open(ref string) (io.ReadCloser, error) {
	abs, err := s.absPath(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, err
	}
	return f, nil
}

// Delete removes the artifact behind ref.
func (s *LocalStore) Delete(ref string) error {
	abs, err := s.absPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// SignedURL mints a single-use token for ref.
func (s *LocalStore) SignedURL(ref string, ttl time.Duration) (string, error) {
	if _, err := s.absStat(ref); err != nil {
		return "", err
	}
	token := uuid.NewString()
	if ttl > 0 {
		s.tokens.Set(token, ref, ttl)
	} else {
		s.tokens.Set(token, ref, gocache.DefaultExpiration)
	}
	return token, nil
}

// Resolve redeems a token for its ref, consuming it.
func (s *LocalStore) Resolve(token string) (string, error) {
	value, ok := s.tokens.Get(token)
	if !ok {
		return "", fmt.Errorf("%w: token", ErrNotFound)
	}
	s.tokens.Delete(token)
	ref, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: token", ErrNotFound)
	}
	return ref, nil
}

func (s *LocalStore) absStat(ref string) (os.FileInfo, error) {
	abs, err := s.absPath(ref)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, err
	}
	return info, nil
}

// absPath resolves a ref inside the root, rejecting escapes.
func (s *LocalStore) absPath(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid ref %q", ref)
	}
	return filepath.Join(s.root, clean), nil
}

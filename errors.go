package octogo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/octogo/blobstore"
	"github.com/hupe1980/octogo/ident"
	"github.com/hupe1980/octogo/octree"
	"github.com/hupe1980/octogo/snapshot"
)

var (
	// ErrNotFound is returned when a model does not exist in memory or in
	// the repository.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned by operations on a closed DB.
	ErrClosed = errors.New("db is closed")

	// ErrInvalidModel is returned for model ids that are empty or not usable
	// as a storage path segment.
	ErrInvalidModel = errors.New("invalid model id")

	// ErrNoRepository is returned by Save when the DB has no repository.
	ErrNoRepository = errors.New("no repository configured")

	// ErrNilSolid is returned when an item has no geometry.
	ErrNilSolid = errors.New("nil solid")
)

// ErrInvalidIdentity indicates a malformed element identity.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrInvalidIdentity struct {
	Value string
	cause error
}

func (e *ErrInvalidIdentity) Error() string {
	return fmt.Sprintf("invalid identity %q", e.Value)
}

func (e *ErrInvalidIdentity) Unwrap() error { return e.cause }

// ErrLoad indicates that a model could not be rehydrated from its snapshot.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrLoad struct {
	Model string
	Rows  int
	cause error
}

func (e *ErrLoad) Error() string {
	return fmt.Sprintf("load model %s: failed after %d rows: %v", e.Model, e.Rows, e.cause)
}

func (e *ErrLoad) Unwrap() error { return e.cause }

// ParseIdentity parses a 22-character element identity. Shorter inputs are
// left-padded with the zero symbol.
func ParseIdentity(s string) (ident.ID, error) {
	id, err := ident.Parse(s)
	if err != nil {
		return ident.ID{}, &ErrInvalidIdentity{Value: s, cause: err}
	}
	return id, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ii *ErrInvalidIdentity
	if errors.As(err, &ii) {
		return err
	}
	if errors.Is(err, ident.ErrInvalidFormat) {
		return &ErrInvalidIdentity{cause: err}
	}
	if errors.Is(err, snapshot.ErrInvalidModel) {
		return fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	if errors.Is(err, octree.ErrNilSolid) {
		return fmt.Errorf("%w: %w", ErrNilSolid, err)
	}
	if errors.Is(err, blobstore.ErrNotFound) && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return err
}

package core

import "errors"

// Error kinds shared across the resource, baker, and kernel layers. Wrap
// with fmt.Errorf("...: %w", Err*) and match with errors.Is.
var (
	ErrIo             = errors.New("io error")
	ErrBlobCorrupt    = errors.New("blob corrupt")
	ErrBlobVersion    = errors.New("blob version mismatch")
	ErrBlobAlignment  = errors.New("blob alignment violation")
	ErrMissingAsset   = errors.New("missing asset")
	ErrTexture        = errors.New("texture error")
	ErrBackend        = errors.New("traversal backend error")
	ErrOutOfCapacity  = errors.New("out of capacity")
	ErrNumericInvalid = errors.New("numeric invalid")
)

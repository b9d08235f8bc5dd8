package common

import (
	"errors"

	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/util/logicerr"
)

// ErrReadOnly MUST be returned for modifying operations when the storage was opened
// in readonly mode.
var ErrReadOnly = logicerr.New("opened as read-only")

// ErrNoSpace MUST be returned when there is no space to put an object on the device.
var ErrNoSpace = errors.New("no free space")

// ErrNotFound is returned when there is no object for the requested key.
var ErrNotFound = logicerr.New("object not found")

// ErrConfiguration is returned when the storage can not work with the provided
// settings: missing root directory, digests too short to be sharded, unknown
// hash function and so on. It is never a per-object condition.
var ErrConfiguration = logicerr.New("invalid configuration")

// ErrConcurrentModification is returned when a file was changed by someone
// else while it was being folded into the storage. The file is left in place
// untouched, the operation can be retried.
var ErrConcurrentModification = errors.New("file modified concurrently")

// ErrNotRegular is returned when asked to assimilate something that is not a
// regular file.
var ErrNotRegular = logicerr.New("not a regular file")

// ErrCrossDevice is returned when a file can not be hard-linked into the
// storage because they reside on different file systems.
var ErrCrossDevice = logicerr.New("file and storage are on different devices")

// ErrFatal is returned when the storage state is broken and can't be used any more.
var ErrFatal = errors.New("fatal error")

package storagelog

import (
	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"go.uber.org/zap"
)

// headMsg is a distinctive part of all messages.
const headMsg = "local object storage operation"

// Write writes message about storage operation to logger. Per-object
// operations are frequent, so they are logged at debug level.
func Write(logger *zap.Logger, fields ...zap.Field) {
	logger.Debug(headMsg, fields...)
}

// KeyField returns logger's field for object key.
func KeyField(k key.Key) zap.Field {
	return zap.Stringer("key", k)
}

// OpField returns logger's field for operation type.
func OpField(op string) zap.Field {
	return zap.String("op", op)
}

// PathField returns logger's field for file path.
func PathField(p string) zap.Field {
	return zap.String("path", p)
}

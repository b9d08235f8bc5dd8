package juggler

import (
	"fmt"
	"os"
)

// linkAndRemove moves src to dst without ever replacing an existing dst:
// dst is created as a hard link first, then src is removed. Both names exist
// for a moment in between.
func linkAndRemove(src, dst string) error {
	err := os.Link(src, dst)
	if err != nil {
		return err
	}
	err = os.Remove(src)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove %q after linking to %q: %w", src, dst, err)
	}
	return nil
}

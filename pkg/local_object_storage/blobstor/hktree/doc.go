/*
Package hktree implements hash-keyed object storage on top of a file system
tree.

Each object is stored as a file whose contents are exactly the object bytes,
without any header. The file is named by the URL-safe base64 encoding of the
object digest (see package key) and is placed into two levels of
subdirectories named by the first two and the next two characters of that
name. For example, the "foobar\n" object under the default BLAKE3 hash is
stored as

	<root>/
	└── U0
	    └── ZZ
	        └── U0ZZMh0u6msTrqT0yUw7T2JGIildoxUGcitHqOudcmw

Root directory must exist before the storage is initialized, Tree never
creates it. Shard directories are created on demand.

Objects become visible only when fully written: data goes to a temporary file
first (an unnamed O_TMPFILE one on Linux when supported, a file with a '#'
prefixed name otherwise) which is then hard-linked to the final name. Linking
fails if the name is already taken, so concurrent writers of the same object
never see each other's partial data and exactly one of them creates the file.
Temporary names can never collide with object names since '#' is not a part
of the key alphabet.

Since the name is derived from the contents, an existing file is considered
to already hold the right bytes and is not rewritten unless [WithRewrite] is
set.
*/
package hktree

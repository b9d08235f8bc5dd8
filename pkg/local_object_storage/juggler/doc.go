/*
Package juggler folds existing files into hash-keyed storage by juggling hard
links instead of copying data.

A file is hashed and its key is resolved to the object location in the
storage. If there is no such object yet ("added"), the file's inode gets a
second name inside the storage. Otherwise ("linked"), the original name of
the file is replaced with a link to the already stored object and the space
taken by the duplicate is reclaimed once nothing else refers to it. Either way
both names share one inode afterwards, including its permission bits and
ownership, so changing them via one name changes them for all. The file and
the storage must reside on the same file system.

# Concurrent modifications

Assimilation never loses data that was written before it started, and the
storage never gets an object whose contents do not match its key, as long as
the file is modified through the usual open-write-close sequence:

  - the file is hashed via an open descriptor holding a shared flock(2) lock,
    writers taking exclusive locks are kept out for the whole operation;
  - size and modification time are compared before and after hashing;
  - a new object is linked from the hashed descriptor itself (not by name)
    and the comparison is repeated after linking, the link is removed if it
    fails;
  - an existing object replaces the original name only after the name is
    atomically moved to a private staging name (which stops new openers) and
    the staged inode is verified to be the hashed one with the same size and
    modification time (or, with [VerifyRehash], the same contents). Any
    mismatch moves the file back and fails with
    [common.ErrConcurrentModification].

The remaining window is a writer that opened the file before the staging
rename and writes through that descriptor between the final verification and
the moment the staged name is removed: such writes land in the unlinked
duplicate inode and are lost. Files that are written after being assimilated
modify the stored object too, since it is the same inode.
*/
package juggler

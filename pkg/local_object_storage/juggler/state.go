package juggler

func (s fileState) sameInode(o fileState) bool {
	return s.dev == o.dev && s.ino == o.ino
}

// sameContent reports whether the inode looks unmodified since s was taken.
// Renames and new links change ctime, so it is not compared.
func (s fileState) sameContent(o fileState) bool {
	return s.sameInode(o) && s.size == o.size && s.mtime == o.mtime
}

package core

import "strings"

// Resolve walks path from root, reading one child per non-empty segment.
// Leading, trailing and repeated slashes are ignored and an empty path
// yields root. The first failing segment aborts the walk with its code.
// A read that succeeds without producing a node, like a bus flush, is only
// accepted on the last segment and yields a nil node.
func Resolve(root Node, path string) (Node, Code) {
	if root == nil {
		return nil, NullArgument
	}
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	current := root
	for i, segment := range segments {
		next, code := current.Read(segment)
		if code != EOK {
			return nil, code
		}
		if next == nil {
			if i == len(segments)-1 {
				return nil, EOK
			}
			return nil, NoResource
		}
		current = next
	}
	return current, EOK
}

// Normalize collapses path into its canonical "/a/b" form
func Normalize(path string) string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return "/" + strings.Join(segments, "/")
}

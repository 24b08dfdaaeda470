//go:build !unix

package preflight

import "os"

// checkAccess probes writability by creating and removing a temp file, since
// access(2) has no equivalent here.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".qmunlock-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

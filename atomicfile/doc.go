/*
Package atomicfile writes a file so that readers see either the old
content or the complete new content, never a partial write.

Data is written to a temporary file in the destination directory which
is renamed over the destination on a successful Close. If any Write,
Sync or Close fails, the temporary file is removed and the destination
is left untouched.

	func writeSnapshot(path string, data []byte) error {
		w, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		defer w.RemoveIfNotClosed()

		if _, err = w.Write(data); err != nil {
			return err
		}
		return w.Close()
	}
*/
package atomicfile

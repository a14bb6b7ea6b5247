package bootstrap

import (
	"io/fs"
	"strings"
)

// BannerSource returns the text printed when the server starts.
type BannerSource func() (string, error)

// FileBanner reads the banner from a file of fsys, typically an embedded
// banner.txt.
func FileBanner(fsys fs.FS, name string) BannerSource {
	return func() (string, error) {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(b), "\n"), nil
	}
}

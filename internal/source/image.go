package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageSource serves image files from a directory (sorted by name) or a single file
type ImageSource struct {
	paths []string
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				ext := strings.ToLower(filepath.Ext(entry.Name()))
				if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
					paths = append(paths, filepath.Join(path, entry.Name()))
				}
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	return &ImageSource{paths: paths}, nil
}

func (s *ImageSource) Count() int {
	return len(s.paths)
}

// Image returns the file contents as is; decoding happens when the asset is loaded
func (s *ImageSource) Image(index int) ([]byte, error) {
	return os.ReadFile(s.paths[index])
}

func (s *ImageSource) Close() error {
	return nil
}

// Open picks the PDF or image-directory implementation by path
func Open(path string, dpi int) (Source, error) {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return NewFitzPDFSource(path, dpi)
	}
	return NewImageSource(path)
}

package loader

import (
	"path/filepath"
	"strings"
)

// FilepathPrefix returns the sub directory prefix needed to address a file in
// fileDir from rootDir. Segments of fileDir that appear anywhere in rootDir
// are dropped, the rest are joined with "/" and terminated by "/". When no
// segment survives the prefix is empty.
//
// Rendering partials/_partial.twig from sections/_section.twig only works if
// the loader root stays at the template root, so the entry has to be named
// "sections/_section.twig" instead of "_section.twig".
func FilepathPrefix(rootDir, fileDir string) string {
	rootChunks := strings.Split(filepath.ToSlash(rootDir), "/")
	fileChunks := strings.Split(filepath.ToSlash(fileDir), "/")

	seen := make(map[string]struct{}, len(rootChunks))
	for _, chunk := range rootChunks {
		seen[chunk] = struct{}{}
	}

	prefix := make([]string, 0, len(fileChunks))
	for _, chunk := range fileChunks {
		if _, ok := seen[chunk]; ok {
			continue
		}
		prefix = append(prefix, chunk)
	}

	if len(prefix) == 0 {
		return ""
	}
	return strings.Join(prefix, "/") + "/"
}

// EntryName splits an entry template path into the loader root and the name
// to render. An empty root falls back to the entry's own directory.
func EntryName(root, entry string) (rootDir, name string) {
	fileDir := filepath.Dir(entry)
	rootDir = root
	if strings.TrimSpace(rootDir) == "" {
		rootDir = fileDir
	}
	return rootDir, FilepathPrefix(rootDir, fileDir) + filepath.Base(entry)
}

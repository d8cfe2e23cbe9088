package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// maxScriptSize bounds a single script file.
const maxScriptSize = 8 << 20

// discover expands args into script files. An argument may be a file, a
// directory searched recursively for files matching pattern, or a
// doublestar glob. The result is sorted and free of duplicates.
func discover(ctx context.Context, args []string, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	var (
		mu    sync.Mutex
		found []string
	)
	add := func(p string) {
		mu.Lock()
		found = append(found, filepath.Clean(p))
		mu.Unlock()
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && !info.IsDir():
			add(arg)
		case err == nil:
			if err := walk(ctx, arg, pattern, add); err != nil {
				return nil, err
			}
		default:
			matches, gerr := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if gerr != nil {
				return nil, fmt.Errorf("glob %s: %w", arg, gerr)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no scripts match %s", arg)
			}
			for _, m := range matches {
				add(m)
			}
		}
	}

	slices.Sort(found)
	return slices.Compact(found), nil
}

// walk visits root concurrently; add must be safe for concurrent use.
func walk(ctx context.Context, root, pattern string, add func(string)) error {
	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			return nil
		}
		if ok, _ := doublestar.PathMatch(pattern, rel); ok {
			add(p)
		}
		return nil
	})
}

// readScript loads a script and decodes it to UTF-8. It returns the
// charset the source was decoded from.
func readScript(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	if len(data) > maxScriptSize {
		return "", "", fmt.Errorf("%s exceeds %d bytes", path, maxScriptSize)
	}
	return decode(data)
}

func decode(data []byte) (string, string, error) {
	data = trimBOM(data)
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "", "", fmt.Errorf("script is not UTF-8 and its charset could not be detected")
	}
	name := strings.ToLower(result.Charset)
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", "", fmt.Errorf("unsupported charset %s: %w", name, err)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), name, nil
}

func trimBOM(data []byte) []byte {
	const bom = "\xef\xbb\xbf"
	if strings.HasPrefix(string(data), bom) {
		return data[len(bom):]
	}
	return data
}

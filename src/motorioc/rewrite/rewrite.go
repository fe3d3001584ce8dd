// Package rewrite replaces whole lines of template configuration files.
//
// Each line of the source file is tested against an ordered list of rules; the first
// rule whose predicate matches renders the replacement line. Comment lines and lines
// no rule matches are copied unchanged. The original file is kept next to the new one
// under its _OLD name.
package rewrite

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrMissingFile   = errors.New("file not found")
	ErrRewriteFailed = errors.New("rewrite failed")
)

const commentMarker = "#"

type Rule struct {
	Name   string
	Match  func(line string) bool
	Render func(line string) string
}

type Rules []Rule

type Result struct {
	OldPath  string
	Replaced map[string]int
}

// Contains matches lines holding marker and none of the excluded substrings.
func Contains(marker string, excluding ...string) func(string) bool {
	return func(line string) bool {
		if !strings.Contains(line, marker) {
			return false
		}
		for _, exclude := range excluding {
			if strings.Contains(line, exclude) {
				return false
			}
		}
		return true
	}
}

func AnyOf(predicates ...func(string) bool) func(string) bool {
	return func(line string) bool {
		for _, predicate := range predicates {
			if predicate(line) {
				return true
			}
		}
		return false
	}
}

func HasPrefix(prefix string) func(string) bool {
	return func(line string) bool {
		return strings.HasPrefix(line, prefix)
	}
}

// Verbatim keeps the line; used for markers that only exist to shadow a shorter one.
func Verbatim(line string) string {
	return line
}

func Static(line string) func(string) string {
	return func(string) string { return line }
}

// EnvSet renders an epicsEnvSet("KEY", "value") declaration.
func EnvSet(key, value string) func(string) string {
	return Static(fmt.Sprintf("epicsEnvSet(\"%s\", \"%s\")\n", key, value))
}

// KeyValue renders a KEY=value line.
func KeyValue(key, value string) func(string) string {
	return Static(fmt.Sprintf("%s=%s\n", key, value))
}

// Apply returns the rendered line and the rule that produced it, or the line itself and nil.
func (r Rules) Apply(line string) (string, *Rule) {
	if strings.HasPrefix(line, commentMarker) {
		return line, nil
	}
	for i := range r {
		if r[i].Match(line) {
			return r[i].Render(line), &r[i]
		}
	}
	return line, nil
}

// OldPath is unique.cmd -> unique_OLD.cmd, config -> config_OLD.
func OldPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_OLD" + ext
}

func RewriteFile(path string, rules Rules) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return Result{}, fmt.Errorf("%w: %s", ErrRewriteFailed, err)
	}

	oldPath := OldPath(path)
	if err := os.Rename(path, oldPath); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrRewriteFailed, err)
	}

	src, err := os.Open(oldPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrRewriteFailed, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrRewriteFailed, err)
	}

	result := Result{OldPath: oldPath, Replaced: map[string]int{}}
	if err := rules.stream(src, dst, result.Replaced); err != nil {
		dst.Close()
		return Result{}, fmt.Errorf("%w: %s: %s", ErrRewriteFailed, path, err)
	}

	if err := dst.Close(); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrRewriteFailed, err)
	}

	return result, nil
}

func (r Rules) stream(src io.Reader, dst io.Writer, replaced map[string]int) error {
	reader := bufio.NewReader(src)
	writer := bufio.NewWriter(dst)

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			out, rule := r.Apply(line)
			if rule != nil {
				replaced[rule.Name]++
			}
			if _, werr := writer.WriteString(out); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	return writer.Flush()
}

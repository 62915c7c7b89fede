package xmlparser

import (
	"regexp"
	"strconv"
	"strings"
)

// locationRE matches Python traceback frames and generic path:line pairs.
var locationRE = regexp.MustCompile(`File "([^"]+)", line (\d+)|([\w./\\-]*[\w-]\.[A-Za-z]\w*):(\d+)`)

// internalMarkers identify paths inside assertion libraries, test runners
// and language runtimes.
var internalMarkers = []string{
	"site-packages/",
	"dist-packages/",
	"/_pytest/",
	"/unittest/",
	"<frozen",
	"/usr/lib/",
	"/usr/include/",
	"googletest/",
	"gtest/",
	"gmock/",
	"catch2/",
	"doctest.h",
	"unity.c",
	"check.c",
	"/rustc/",
	"library/core/",
	"library/std/",
	"stretchr/testify",
	"testing/testing.go",
	"org/junit/",
	"org.junit.",
	"junit-platform",
	"assertj",
	"hamcrest",
}

type location struct {
	file string
	line int
}

// RecoverLocation scans a failure message for file:line substrings and picks
// one: a path inside pkgPath first, then the first path that does not look
// framework-internal, then the last candidate.
func RecoverLocation(message, pkgPath string) (string, int, bool) {
	var candidates []location
	for _, m := range locationRE.FindAllStringSubmatch(message, -1) {
		file, num := m[1], m[2]
		if file == "" {
			file, num = m[3], m[4]
		}
		n, err := strconv.Atoi(num)
		if err != nil || n <= 0 {
			continue
		}
		candidates = append(candidates, location{file: file, line: n})
	}
	if len(candidates) == 0 {
		return "", 0, false
	}

	pkgPath = strings.Trim(pkgPath, "/")
	if pkgPath != "" {
		for _, c := range candidates {
			if strings.Contains(c.file, pkgPath) {
				return c.file, c.line, true
			}
		}
	}
	for _, c := range candidates {
		if !isInternal(c.file) {
			return c.file, c.line, true
		}
	}
	last := candidates[len(candidates)-1]
	return last.file, last.line, true
}

func isInternal(path string) bool {
	p := strings.ReplaceAll(path, `\`, "/")
	for _, m := range internalMarkers {
		if strings.Contains(p, m) {
			return true
		}
	}
	return false
}

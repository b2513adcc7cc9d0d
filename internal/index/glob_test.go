package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobToRegexp(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "pkg/main.go", false},
		{"**/*.go", "main.go", true},
		{"**/*.go", "a/b/c/main.go", true},
		{"**/node_modules/**", "node_modules/react/index.js", true},
		{"**/node_modules/**", "src/node_modules/x/y.js", true},
		{"**/node_modules/**", "src/app.js", false},
		{"src/*.ts", "src/app.ts", true},
		{"src/*.ts", "src/sub/app.ts", false},
		{"file?.txt", "file1.txt", true},
		{"file?.txt", "file12.txt", false},
		{"a+b.txt", "a+b.txt", true},
		{"a+b.txt", "aab.txt", false},
	}
	for _, tc := range cases {
		re, err := globToRegexp(tc.pattern)
		require.NoError(t, err, tc.pattern)
		assert.Equal(t, tc.want, re.MatchString(tc.path), "%s vs %s", tc.pattern, tc.path)
	}
}

func TestPatternSet_AnyMatch(t *testing.T) {
	set, err := compilePatterns([]string{"**/*.go", "**/*.ts"})
	require.NoError(t, err)

	assert.True(t, set.matches("internal/app.go"))
	assert.True(t, set.matches("web/app.ts"))
	assert.False(t, set.matches("web/app.py"))

	empty, err := compilePatterns(nil)
	require.NoError(t, err)
	assert.False(t, empty.matches("anything"))
}

func TestIsBinary(t *testing.T) {
	assert.False(t, isBinary(nil))
	assert.False(t, isBinary([]byte("package main\n\nfunc main() {}\n")))
	assert.True(t, isBinary([]byte{'a', 0x00, 'b'}))
	assert.True(t, isBinary([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x41}))
}

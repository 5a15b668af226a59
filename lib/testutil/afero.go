package testutil

import (
	"io"
	"io/ioutil"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func ReadString(t require.TestingT, r io.Reader) string {
	data, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

// WriteFiles creates files with content in fs, making parent directories.
func WriteFiles(t require.TestingT, fs afero.Fs, files map[string]string) {
	for name, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(name), 0755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
}

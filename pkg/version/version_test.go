package version

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_ContainsBuildInfo(t *testing.T) {
	s := String()
	assert.Contains(t, s, "lexmind")
	assert.Contains(t, s, Version)
	assert.Contains(t, s, Commit)
	assert.Contains(t, s, GoVersion)
}

func TestShort(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestGetInfo_JSON(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)

	data, err := json.Marshal(info)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"go_version"`)
	assert.Contains(t, string(data), `"platform"`)
}

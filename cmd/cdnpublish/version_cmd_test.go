package main

import (
	"strings"
	"testing"

	"github.com/openmined/cdnpublish/internal/version"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand_PrintsDetailedVersion(t *testing.T) {
	isolate(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, version.Detailed(), strings.TrimSpace(out))
}

func TestVersionCommand_NeedsNoCredentials(t *testing.T) {
	isolate(t)

	_, err := execute(t, "version", "-s", "not a url")
	require.NoError(t, err)
}

package lockfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLock = `# This file is automatically @generated by Cargo.
version = 3

[[package]]
name = "frame-support"
version = "38.2.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
dependencies = [
 "sp-runtime",
]

[[package]]
name = "polkadot-primitives"
version = "16.0.0"

[[package]]
name = "sp-runtime"
version = "31.0.1"

[[package]]
name = "sp-runtime"
version = "39.0.5"

[[package]]
name = "serde"
version = "1.0.210"
`

func TestLockVersions(t *testing.T) {
	got, err := LockVersions([]byte(sampleLock), []string{"polkadot-primitives", "sp-runtime", "frame-support"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"frame-support":       "38.2.0",
		"polkadot-primitives": "16.0.0",
		"sp-runtime":          "39.0.5",
	}, got)
}

func TestLockVersionsDuplicateCrateKeepsNewest(t *testing.T) {
	lock := `[[package]]
name = "sp-runtime"
version = "31.0.1"

[[package]]
name = "sp-runtime"
version = "39.0.5"
`
	got, err := LockVersions([]byte(lock), []string{"sp-runtime"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sp-runtime": "39.0.5"}, got)
}

func TestLockVersionsMissingPackages(t *testing.T) {
	got, err := LockVersions([]byte(sampleLock), []string{"pallet-xcm"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLockVersionsInvalid(t *testing.T) {
	_, err := LockVersions([]byte("[[package]\nname = "), nil)
	assert.Error(t, err)
}

func TestManifestVersion(t *testing.T) {
	v, err := ManifestVersion([]byte(`[package]
name = "sp-runtime"
version = "39.0.5"
edition.workspace = true
`))
	require.NoError(t, err)
	assert.Equal(t, "39.0.5", v)

	v, err = ManifestVersion([]byte(`[package]
name = "frame-support"
version.workspace = true
`))
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestNewParser(t *testing.T) {
	p, err := NewParser("/tmp/repo/Cargo.lock")
	require.NoError(t, err)
	assert.Equal(t, "Cargo.lock", p.Kind())

	p, err = NewParser("substrate/frame/support/Cargo.toml")
	require.NoError(t, err)
	assert.Equal(t, "Cargo.toml", p.Kind())

	_, err = NewParser("package-lock.json")
	assert.Error(t, err)
}

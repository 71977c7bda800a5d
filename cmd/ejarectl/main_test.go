package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	cmd := hashPasswordCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("s3cret\n"))
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "ejare.db"))

	run := func() string {
		cmd := seedAdminCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--username", "admin", "--password", "pw"})
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	assert.Contains(t, run(), "created")
	assert.Contains(t, run(), "already exists")
}

package main

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var serialRe = regexp.MustCompile(`certificate ([0-9a-f]+)`)

func TestCertLifecycleThroughCLI(t *testing.T) {
	dir := t.TempDir()
	args := func(a ...string) []string { return append(a, "--data-dir", dir) }

	root := newRootCmd()
	root.SetArgs(args("cert", "init", "--name", "root-ca"))
	require.NoError(t, root.Execute())

	root = newRootCmd()
	var signOut bytes.Buffer
	root.SetOut(&signOut)
	root.SetArgs(args("cert", "issue-signing", "--name", "leaf-signer", "--parent", "0"))
	require.NoError(t, root.Execute())
	m := serialRe.FindStringSubmatch(signOut.String())
	require.Len(t, m, 2, "expected serial in output %q", signOut.String())
	signingSerial := m[1]

	root = newRootCmd()
	var encOut bytes.Buffer
	root.SetOut(&encOut)
	root.SetArgs(args("cert", "issue-encryption", "--name", "leaf-enc", "--parent", signingSerial))
	require.NoError(t, root.Execute())

	root = newRootCmd()
	root.SetArgs(args("cert", "verify", signingSerial, "--type", "signing"))
	require.NoError(t, root.Execute())

	root = newRootCmd()
	var listOut bytes.Buffer
	root.SetOut(&listOut)
	root.SetArgs(args("cert", "list"))
	require.NoError(t, root.Execute())
	require.Contains(t, listOut.String(), "leaf-signer")
	require.Contains(t, listOut.String(), "leaf-enc")
}

func TestCertInitRejectsSecondRoot(t *testing.T) {
	dir := t.TempDir()
	args := func(a ...string) []string { return append(a, "--data-dir", dir) }

	root := newRootCmd()
	root.SetArgs(args("cert", "init", "--name", "root-ca"))
	require.NoError(t, root.Execute())

	root = newRootCmd()
	root.SetArgs(args("cert", "init", "--name", "root-ca-2"))
	require.Error(t, root.Execute())
}

func TestCertIssueSigningRequiresName(t *testing.T) {
	dir := t.TempDir()
	root := newRootCmd()
	root.SetArgs([]string{"cert", "issue-signing", "--data-dir", dir})
	require.Error(t, root.Execute())
}

func TestCertVerifyFailsForUnknownSerial(t *testing.T) {
	dir := t.TempDir()
	args := func(a ...string) []string { return append(a, "--data-dir", dir) }

	root := newRootCmd()
	root.SetArgs(args("cert", "verify", "deadbeef", "--type", "signing"))
	require.Error(t, root.Execute())
}

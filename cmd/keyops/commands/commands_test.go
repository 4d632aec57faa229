package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/keyops/internal/config"
	"github.com/systmms/keyops/internal/credential"
	kerrors "github.com/systmms/keyops/internal/errors"
	"github.com/systmms/keyops/internal/ledger"
	"github.com/systmms/keyops/internal/logging"
)

func testConfig(t *testing.T, secretsDir string) (*config.Config, *bytes.Buffer) {
	t.Helper()

	logs := &bytes.Buffer{}
	return &config.Config{
		Path:               filepath.Join(t.TempDir(), "keyops.yaml"),
		Logger:             logging.NewWithWriter(logs, false, true),
		SecretsDirOverride: secretsDir,
	}, logs
}

// seedLedger creates a valid ledger where every catalog credential was
// created at the given time.
func seedLedger(t *testing.T, dir string, createdAt time.Time) {
	t.Helper()

	led := ledger.New(filepath.Join(dir, ledger.Filename))
	require.NoError(t, led.Create(createdAt))
	for _, cred := range credential.Catalog() {
		require.NoError(t, led.UpdateCredential(cred.Name, createdAt, cred.Format, cred.Service))
	}
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusTableListsEveryCredential(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := testConfig(t, dir)
	seedLedger(t, dir, time.Now().UTC())

	out, err := execute(NewStatusCommand(cfg))
	require.NoError(t, err)

	for _, name := range credential.Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "current")
	assert.Contains(t, out, "Global deadline:")
}

func TestStatusJSONReportsDaysRemaining(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := testConfig(t, dir)
	seedLedger(t, dir, time.Now().UTC())

	out, err := execute(NewStatusCommand(cfg), "--format", "json")
	require.NoError(t, err)

	var got statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, "current", string(got.Global.Status))
	assert.Len(t, got.Credentials, len(credential.Names()))
	assert.Empty(t, got.Uninitialized)
	assert.InDelta(t, 89, got.Global.DaysRemaining, 1)
}

func TestStatusFlagsUnseededCredentials(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := testConfig(t, dir)

	led := ledger.New(filepath.Join(dir, ledger.Filename))
	require.NoError(t, led.Create(time.Now().UTC()))
	require.NoError(t, led.UpdateCredential("anthropic_api_key", time.Now().UTC(), "sk-ant-...", "Anthropic Claude"))

	out, err := execute(NewStatusCommand(cfg), "--format", "json")
	require.NoError(t, err)

	var got statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Credentials, 1)
	assert.Contains(t, got.Uninitialized, "telegram_bot_token")
}

func TestStatusRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := testConfig(t, dir)
	seedLedger(t, dir, time.Now().UTC())

	_, err := execute(NewStatusCommand(cfg), "--format", "xml")

	var uerr kerrors.UserError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "xml")
}

func TestStatusRequiresInit(t *testing.T) {
	cfg, _ := testConfig(t, t.TempDir())

	_, err := execute(NewStatusCommand(cfg))
	assert.ErrorIs(t, err, kerrors.ErrUninitialized)
}

func TestCheckExpiryCurrentLedgerSucceeds(t *testing.T) {
	dir := t.TempDir()
	cfg, logs := testConfig(t, dir)
	seedLedger(t, dir, time.Now().UTC())

	_, err := execute(NewCheckExpiryCommand(cfg))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "global deadline")
}

func TestCheckExpiryFailsPastDeadline(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := testConfig(t, dir)
	seedLedger(t, dir, time.Now().UTC().Add(-91*24*time.Hour))

	_, err := execute(NewCheckExpiryCommand(cfg))

	var uerr kerrors.UserError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Suggestion, "keyops rotate")
}

func TestCheckExpiryWarnsInsideNoticeWindow(t *testing.T) {
	dir := t.TempDir()
	cfg, logs := testConfig(t, dir)
	seedLedger(t, dir, time.Now().UTC().Add(-75*24*time.Hour))

	_, err := execute(NewCheckExpiryCommand(cfg))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "remaining")
}

func TestCheckExpiryRequiresInit(t *testing.T) {
	cfg, _ := testConfig(t, t.TempDir())

	_, err := execute(NewCheckExpiryCommand(cfg))

	var uerr kerrors.UserError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Suggestion, "keyops init")
}

func TestRotateRefusedNonInteractive(t *testing.T) {
	cfg, _ := testConfig(t, t.TempDir())
	cfg.NonInteractive = true

	_, err := execute(NewRotateCommand(cfg))

	var uerr kerrors.UserError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "interactive")
}

func TestInitRefusedNonInteractive(t *testing.T) {
	cfg, _ := testConfig(t, t.TempDir())
	cfg.NonInteractive = true

	_, err := execute(NewInitCommand(cfg))

	var uerr kerrors.UserError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "interactive")
}

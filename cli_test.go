// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitLogging("error")
	os.Exit(m.Run())
}

// writeConfig creates a config pointing at a fresh database in a temp dir.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("Database = %q\nLoglevel = \"error\"\n%s", filepath.Join(dir, "triage.db"), extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, conf, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	err := newApp(strings.NewReader(stdin), out).Run(append([]string{"imap-triage", "--config", conf}, args...))
	return out.String(), err
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "missing.toml"), "", "vip", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not read config file")
}

func TestVIPCommands(t *testing.T) {
	conf := writeConfig(t, "")

	out, err := run(t, conf, "", "vip", "add", "Boss@Example.org")
	require.NoError(t, err)
	assert.JSONEq(t, `{"added":"boss@example.org"}`, out)

	_, err = run(t, conf, "", "vip", "add", "not-an-address")
	assert.Error(t, err)

	out, err = run(t, conf, "", "vip", "list")
	require.NoError(t, err)
	vips := []domain.VIPSender{}
	require.NoError(t, json.Unmarshal([]byte(out), &vips))
	require.Len(t, vips, 1)
	assert.Equal(t, "boss@example.org", vips[0].SenderEmail)
}

func TestActionCommand(t *testing.T) {
	conf := writeConfig(t, "")

	out, err := run(t, conf, "", "action", "--email", "acc_1", "--sender", "jane@example.org", "Replied")
	require.NoError(t, err)
	assert.JSONEq(t, `{"email_id":"acc_1","action":"replied"}`, out)

	_, err = run(t, conf, "", "action", "--email", "acc_1", "archived")
	assert.Error(t, err)

	out, err = run(t, conf, "", "importance", "acc_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, out)
}

func TestTriageEmptyBacklog(t *testing.T) {
	conf := writeConfig(t, "")

	out, err := run(t, conf, "", "triage", "--account", "acc")
	require.NoError(t, err)

	stats := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, "acc", stats["account_id"])
	assert.Equal(t, float64(0), stats["total"])

	_, err = run(t, conf, "", "triage")
	assert.Error(t, err)
}

func TestSkillsWithoutData(t *testing.T) {
	conf := writeConfig(t, "")

	out, err := run(t, conf, "", "skills", "generate")
	require.NoError(t, err)
	assert.JSONEq(t, `["Not enough behavior data yet."]`, out)

	out, err = run(t, conf, "", "skills", "cycle")
	require.NoError(t, err)
	assert.Contains(t, out, `"skipped": true`)

	_, err = run(t, conf, "", "skills", "delete", "missing")
	assert.Error(t, err)
}

func TestSummaryCommands(t *testing.T) {
	conf := writeConfig(t, "")

	out, err := run(t, conf, "", "summary", "show", "--account", "acc")
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(out))

	_, err = run(t, conf, "Quiet week, one invoice.\n", "summary", "set", "--account", "acc", "--count", "4")
	require.NoError(t, err)

	out, err = run(t, conf, "", "summary", "show", "--account", "acc")
	require.NoError(t, err)
	summary := domain.ConversationSummary{}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "Quiet week, one invoice.", summary.Summary)
	assert.Equal(t, 4, summary.MessageCount)
}

func TestAIConfigCommands(t *testing.T) {
	conf := writeConfig(t, "[AI]\nModel = \"local-model\"\n")

	out, err := run(t, conf, "", "ai-config", "show")
	require.NoError(t, err)
	assert.JSONEq(t, `{"endpoint":"http://127.0.0.1:8045/v1/chat/completions","model":"local-model","api_key_set":false}`, out)

	_, err = run(t, conf, "", "ai-config", "set", "--endpoint", "ftp://nope")
	assert.Error(t, err)

	_, err = run(t, conf, "", "ai-config", "set", "--endpoint", "https://ai.example.org/v1/chat/completions", "--api-key", "secret")
	require.NoError(t, err)

	out, err = run(t, conf, "", "ai-config", "show")
	require.NoError(t, err)
	assert.JSONEq(t, `{"endpoint":"https://ai.example.org/v1/chat/completions","model":"local-model","api_key_set":true}`, out)
}

func TestServeNeedsSomethingToServe(t *testing.T) {
	conf := writeConfig(t, "")

	_, err := run(t, conf, "", "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to serve")
}

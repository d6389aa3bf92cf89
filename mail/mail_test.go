// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

const plainMail = `From: "Jane Boss" <Jane.Boss@Example.org>
To: me@example.org
Subject: =?UTF-8?Q?Vertrag_f=C3=BCr_morgen?=
Message-Id: <123@example.org>
Date: Tue, 14 Oct 2025 09:30:00 +0200
Content-Type: text/plain; charset=utf-8

Hi,

please   sign the contract
before tomorrow.
`

const alternativeMail = `From: news@example.org
Subject: Weekly digest
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/html; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

<html><head><style>p { color: red; }</style></head><body><p>Gr=FC=DFe &amp; more</p><script>alert(1)</script></body></html>
--b1--
`

const mixedMail = `From: Bob <bob@example.org>
Subject: Report
Content-Type: multipart/mixed; boundary="m"

--m
Content-Type: multipart/alternative; boundary="a"

--a
Content-Type: text/plain

The plain report.
--a
Content-Type: text/html

<p>The html report.</p>
--a--
--m
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"

JVBERi0=
--m--
`

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected *Message
	}{
		{
			"plain",
			plainMail,
			&Message{
				MessageID:   "123@example.org",
				SenderName:  "Jane Boss",
				SenderEmail: "jane.boss@example.org",
				Subject:     "Vertrag für morgen",
				Date:        time.Date(2025, 10, 14, 9, 30, 0, 0, time.FixedZone("", 2*60*60)),
				Snippet:     "Hi, please sign the contract before tomorrow.",
				Body:        "Hi,\r\n\r\nplease   sign the contract\r\nbefore tomorrow.",
			},
		},
		{
			"html only",
			alternativeMail,
			&Message{
				SenderName:  "news@example.org",
				SenderEmail: "news@example.org",
				Subject:     "Weekly digest",
				Snippet:     "Grüße & more",
			},
		},
		{
			"mixed prefers plain",
			mixedMail,
			&Message{
				SenderName:  "Bob",
				SenderEmail: "bob@example.org",
				Subject:     "Report",
				Snippet:     "The plain report.",
				Body:        "The plain report.",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := ParseMessage(crlf(tc.raw))
			require.NoError(t, err)

			assert.Equal(t, tc.expected.MessageID, msg.MessageID)
			assert.Equal(t, tc.expected.SenderName, msg.SenderName)
			assert.Equal(t, tc.expected.SenderEmail, msg.SenderEmail)
			assert.Equal(t, tc.expected.Subject, msg.Subject)
			assert.Equal(t, tc.expected.Snippet, msg.Snippet)
			if !tc.expected.Date.IsZero() {
				assert.True(t, tc.expected.Date.Equal(msg.Date))
			}
			if tc.expected.Body != "" {
				assert.Equal(t, tc.expected.Body, msg.Body)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", Snippet(" a\n\tb   c ", 10))
	assert.Equal(t, "äöü", Snippet("äöüß", 3))
	assert.Equal(t, "", Snippet("", 3))
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"entities", "<b>hi</b>&nbsp;<i>there</i> &amp; you", "hi there & you"},
		{"style and script", "<style>.a{}</style><SCRIPT>x()</SCRIPT> x", "x"},
		{"comment", "<p>Hello</p><!-- if a > b then hidden --><p>World</p>", "Hello World"},
		{"attribute with bracket", `<p title="x > y">Visible</p>`, "Visible"},
		{"head", "<html><head><title>Digest</title></head><body><div>One</div><div>Two</div></body></html>", "One Two"},
		{"unclosed", "<div>open <b>bold", "open bold"},
		{"plain text", "no markup at all", "no markup at all"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripTags(tc.input))
		})
	}
}

func TestShortSubject(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"short", "short"},
		{strings.Repeat("a", 30), strings.Repeat("a", 30)},
		{strings.Repeat("a", 31), strings.Repeat("a", 30) + "..."},
		{strings.Repeat("ü", 31), strings.Repeat("ü", 30) + "..."},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, ShortSubject(tc.input))
	}
}

// SPDX-License-Identifier: GPL-3.0-or-later
package classifier

import (
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-triage/domain"
)

const SnippetLimit = 500

const systemPrompt = "You are an expert email classifier. Read the content of the email carefully. Respond with JSON only."

const promptTemplate = `Classify this email by importance. Respond ONLY with valid JSON, no extra explanation.

Email:
From: %s <%s>
Subject: %s
Content: %s%s%s

Respond in exactly this format:
{"importance": "high|medium|low", "reason": "one short sentence", "should_notify": true|false}

STRICT rules, apply in order:
1. If the content contains words like "urgent", "asap", "immediately", "as soon as possible", "need this now", "priority", or asks for something urgently, ALWAYS high + should_notify=true
2. If it is from a VIP sender, high + should_notify=true
3. If it is a reply in a thread (subject starting with Re:) and the content asks for something, high + should_notify=true
4. Mail from managers or clients, invoices, contracts, access grants, credentials: high + should_notify=true
5. Useful newsletters, informational replies, meetings: medium + should_notify=false
6. Promotional newsletters, spam, automatic system notifications, bounces, delivery errors: low + should_notify=false

IMPORTANT: read the whole CONTENT of the email, not just the subject. If a person asks you for something urgent, it is HIGH.`

// Clip shortens s to at most limit characters without splitting a rune.
func Clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func vipFragment(vipContext string) string {
	if strings.TrimSpace(vipContext) == "" {
		return ""
	}
	return "\n\nLearned VIP senders (always mark as high):\n" + vipContext
}

func skillsFragment(skillsContext string) string {
	if strings.TrimSpace(skillsContext) == "" {
		return ""
	}
	return "\n\nSelf-learned rules (USE them to classify):\n" + skillsContext
}

func buildPrompt(email *domain.Email, vipContext, skillsContext string) string {
	return fmt.Sprintf(
		promptTemplate,
		email.Sender,
		email.SenderEmail,
		email.Subject,
		Clip(email.Snippet, SnippetLimit),
		vipFragment(vipContext),
		skillsFragment(skillsContext),
	)
}

// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "context"

//go:generate mockgen -destination=mocks/persistence.go -package=mocks . Persistence
type Persistence interface {
	Close() error

	// mail store
	SaveEmails(ctx context.Context, emails []Email) error
	MaxUID(ctx context.Context, accountID, folder string) (uint32, error)
	GetEmail(ctx context.Context, emailID string) (*Email, error)

	// triage log
	PurgeTransientTriage(ctx context.Context) (int64, error)
	CountUnclassified(ctx context.Context, accountID string) (int, error)
	NextUnclassified(ctx context.Context, accountID string) (*Email, error)
	SaveTriageRecord(ctx context.Context, record TriageRecord) error
	LatestImportance(ctx context.Context, emailIDs []string) (map[string]*TriageRecord, error)
	AccountImportance(ctx context.Context, accountID string) (map[string]*TriageRecord, error)
	CountActions(ctx context.Context) (int, error)
	BehaviorCounts(ctx context.Context, limit int) ([]BehaviorCount, error)
	FeedbackPairs(ctx context.Context, limit int) ([]FeedbackPair, error)

	// vip senders
	AddVIP(ctx context.Context, vip VIPSender) (bool, error)
	ListVIPs(ctx context.Context, limit int) ([]*VIPSender, error)

	// skills
	SaveSkill(ctx context.Context, skill *Skill) error
	GetSkill(ctx context.Context, id string) (*Skill, error)
	ListSkills(ctx context.Context) ([]*Skill, error)
	ActiveSkills(ctx context.Context) ([]*Skill, error)
	ContextSkills(ctx context.Context, minConfidence float64, limit int) ([]*Skill, error)
	SetSkillActive(ctx context.Context, id string, active bool) error
	DeleteSkill(ctx context.Context, id string) error
	ApplyEvaluation(ctx context.Context, update EvaluationUpdate) (int64, error)

	// conversation summary
	SaveSummary(ctx context.Context, summary ConversationSummary) error
	LoadSummary(ctx context.Context, accountID string) (*ConversationSummary, error)

	// ai config
	SaveAIConfig(ctx context.Context, cfg AIConfig) error
	LoadAIConfig(ctx context.Context) (*AIConfig, error)
}

// Package security holds the audit trail for executed statements and the
// name checks applied to caller-supplied identifiers.
package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/coregx/polysql/internal/logger"
)

// AuditLevel selects which statements are audited.
type AuditLevel int

const (
	// AuditNone disables auditing.
	AuditNone AuditLevel = iota
	// AuditWrites audits INSERT, UPDATE, DELETE, REPLACE and TRUNCATE.
	AuditWrites
	// AuditAll audits every statement.
	AuditAll
)

// ParseAuditLevel maps "none", "writes" and "all" to a level.
func ParseAuditLevel(s string) (AuditLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AuditNone, nil
	case "writes":
		return AuditWrites, nil
	case "all":
		return AuditAll, nil
	}
	return AuditNone, fmt.Errorf("unknown audit level %q", s)
}

// Entry is one statement handed to the auditor.
type Entry struct {
	Operation    string
	SQL          string
	Args         []any
	RowsAffected int64
	Duration     time.Duration
	Err          error
}

// Auditor writes one log line per audited statement. Argument values are
// never logged; a SHA-256 digest of them is recorded instead.
type Auditor struct {
	logger logger.Logger
	level  AuditLevel
}

// NewAuditor creates an auditor writing to l at level.
func NewAuditor(l logger.Logger, level AuditLevel) *Auditor {
	return &Auditor{logger: logger.OrNoop(l), level: level}
}

// Record audits e. A nil Auditor records nothing.
func (a *Auditor) Record(ctx context.Context, e Entry) {
	if a == nil || !a.shouldAudit(e.Operation) {
		return
	}

	args := []any{
		"operation", e.Operation,
		"table", TableName(e.SQL),
		"sql", e.SQL,
		"rows_affected", e.RowsAffected,
		"duration_ms", e.Duration.Milliseconds(),
		"success", e.Err == nil,
	}
	if len(e.Args) > 0 {
		args = append(args, "params_hash", hashArgs(e.Args))
	}
	if user := User(ctx); user != "" {
		args = append(args, "user", user)
	}
	if ip := ClientIP(ctx); ip != "" {
		args = append(args, "client_ip", ip)
	}
	if id := RequestID(ctx); id != "" {
		args = append(args, "request_id", id)
	}

	if e.Err != nil {
		a.logger.Warn("audit", append(args, "error", e.Err.Error())...)
		return
	}
	a.logger.Info("audit", args...)
}

func (a *Auditor) shouldAudit(operation string) bool {
	switch a.level {
	case AuditAll:
		return true
	case AuditWrites:
		switch operation {
		case "INSERT", "UPDATE", "DELETE", "REPLACE", "TRUNCATE":
			return true
		}
	}
	return false
}

func hashArgs(args []any) string {
	h := sha256.New()
	for _, arg := range args {
		_, _ = fmt.Fprintf(h, "%v\x00", arg)
	}
	return hex.EncodeToString(h.Sum(nil))
}

var (
	tablePattern = regexp.MustCompile(
		"(?i)\\b(?:FROM|INTO|UPDATE|TRUNCATE(?:\\s+TABLE)?)\\s+((?:[`\"\\[]?\\w+[`\"\\]]?\\.)*[`\"\\[]?\\w+[`\"\\]]?)")
	nameQuotes = strings.NewReplacer("`", "", `"`, "", "[", "", "]", "")
)

// TableName returns the first table a statement names after FROM, INTO,
// UPDATE or TRUNCATE, without quoting. It returns "" when none is found.
func TableName(query string) string {
	m := tablePattern.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return nameQuotes.Replace(m[1])
}

type contextKey string

const (
	userKey      contextKey = "polysql:user"
	clientIPKey  contextKey = "polysql:client_ip"
	requestIDKey contextKey = "polysql:request_id"
)

// WithUser attaches the acting user to ctx for audit lines.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithClientIP attaches the client address to ctx for audit lines.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// WithRequestID attaches a request id to ctx for audit lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// User returns the user attached by WithUser.
func User(ctx context.Context) string {
	v, _ := ctx.Value(userKey).(string)
	return v
}

// ClientIP returns the address attached by WithClientIP.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}

// RequestID returns the id attached by WithRequestID.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

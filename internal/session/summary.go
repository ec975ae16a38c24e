package session

import (
	"context"
	"fmt"
	"strings"
)

// ConversationSummary renders a short human-readable recap of a session
// for operator visibility. It is not machine-consumed.
func (s *Store) ConversationSummary(ctx context.Context, sessionID string) string {
	sess := s.GetSession(ctx, sessionID)
	if sess == nil {
		return "no such session"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session %s (domain %s, %d turns).", sess.ID, sess.Domain, len(sess.Turns))

	if topic := sess.Context.CurrentTopic; topic != "" {
		fmt.Fprintf(&b, " Current topic: %s.", topic)
	}

	flow := sess.Context.Flow
	if n := len(flow); n > 0 {
		if n > 5 {
			flow = flow[n-5:]
		}
		fmt.Fprintf(&b, " Recent intents: %s.", strings.Join(flow, " -> "))
	}

	if coll := sess.Context.Collection; coll != nil {
		fmt.Fprintf(&b, " Collecting slots for %s (missing: %s).",
			coll.TargetIntent, strings.Join(coll.Missing, ", "))
	}

	if len(sess.Preferences) > 0 {
		pairs := make([]string, 0, len(sess.Preferences))
		for _, k := range sess.Preferences.Keys() {
			v, _ := sess.Preferences.GetString(k)
			pairs = append(pairs, k+"="+v)
		}
		fmt.Fprintf(&b, " Preferences: %s.", strings.Join(pairs, ", "))
	}

	return b.String()
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"

	"portal-service/internal/models"
	"portal-service/internal/push"
	"portal-service/internal/repositories"
)

var mentionPattern = regexp.MustCompile(`@([\p{L}\p{N}_]+)`)

// Mentions returns the distinct usernames mentioned in text in order of first appearance.
func Mentions(text string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

func (e *Engine) notifyMentions(ctx context.Context, sender models.User, text string) {
	if e.push == nil || e.users == nil {
		return
	}
	title := fmt.Sprintf("%s mentioned you", sender.Username)
	body := push.Preview(text)

	for _, name := range Mentions(text) {
		if name == sender.Username {
			continue
		}
		target, err := e.users.GetUserByUsername(ctx, name)
		if err != nil {
			if !errors.Is(err, repositories.ErrUserNotFound) {
				log.Printf("mention lookup failed username=%s: %v", name, err)
			}
			continue
		}
		if target.ID == sender.ID {
			continue
		}
		if err := e.push.Notify(ctx, target.ID, title, body); err != nil {
			log.Printf("mention push failed user_id=%d: %v", target.ID, err)
		}
	}
}

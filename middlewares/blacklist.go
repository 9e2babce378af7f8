package middlewares

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
)

// defaultBots are user-agent fragments of crawlers and link unfurlers that
// fetch pages without anyone reading them.
var defaultBots = []string{
	"bot", "crawler", "spider", "slurp", "facebookexternalhit",
	"embedly", "preview", "headlesschrome", "lighthouse",
}

var (
	blockedAgents = defaultBots
	blockedLock   sync.RWMutex
)

// LoadBotList replaces the blocked user-agent fragments with the ones in
// filePath, a JSON file of the form {"blocked_user_agents": ["..."]}.
func LoadBotList(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var data struct {
		Blocked []string `json:"blocked_user_agents"`
	}
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return err
	}

	agents := make([]string, 0, len(data.Blocked))
	for _, a := range data.Blocked {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			agents = append(agents, a)
		}
	}

	blockedLock.Lock()
	blockedAgents = agents
	blockedLock.Unlock()
	return nil
}

// IsBot reports whether userAgent matches a blocked fragment. An empty user
// agent counts as a bot.
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return true
	}
	ua := strings.ToLower(userAgent)

	blockedLock.RLock()
	defer blockedLock.RUnlock()
	for _, a := range blockedAgents {
		if strings.Contains(ua, a) {
			return true
		}
	}
	return false
}

// BotFilterMiddleware lets bots read counts but marks their requests so no
// view is recorded for them.
func BotFilterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsBot(r.UserAgent()) {
			r = withTrackingDisabled(r)
		}
		next.ServeHTTP(w, r)
	})
}

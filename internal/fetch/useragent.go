package fetch

import "hash/fnv"

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
}

// UserAgentPool hands out User-Agent strings. Each origin always sees the same one,
// so a session does not change browsers between requests.
type UserAgentPool struct {
	agents []string
}

// NewUserAgentPool creates a pool; an empty list falls back to common desktop browsers.
func NewUserAgentPool(agents []string) *UserAgentPool {
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &UserAgentPool{agents: agents}
}

// ForOrigin returns the User-Agent assigned to origin.
func (p *UserAgentPool) ForOrigin(origin string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(origin))
	return p.agents[h.Sum32()%uint32(len(p.agents))]
}

package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Chatbot is an embeddable FAQ bot owned by exactly one tenant.
// The whitelist column holds a JSON array of allowed hostnames; an empty
// whitelist means "not configured yet" and the public widget is denied
// everywhere until the tenant adds at least one hostname.
type Chatbot struct {
	ID             string `gorm:"primaryKey" json:"id"`
	TenantID       string `gorm:"not null;index" json:"tenant_id"`
	Name           string `gorm:"not null" json:"name"`
	Whitelist      string `json:"-"` // JSON array of hostnames
	ThemeColor     string `gorm:"default:'#2563eb'" json:"theme_color"`
	WelcomeMessage string `json:"welcome_message"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AllowedHostnames decodes the whitelist column. Unknown or empty content
// decodes to an empty list, which the guard treats as deny-all.
func (c *Chatbot) AllowedHostnames() []string {
	if strings.TrimSpace(c.Whitelist) == "" {
		return nil
	}
	var hosts []string
	if err := json.Unmarshal([]byte(c.Whitelist), &hosts); err != nil {
		return nil
	}
	return hosts
}

// SetAllowedHostnames encodes the whitelist column. Hostnames are stored
// lowercased and trimmed; empty entries are dropped.
func (c *Chatbot) SetAllowedHostnames(hosts []string) error {
	cleaned := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			cleaned = append(cleaned, h)
		}
	}
	encoded, err := json.Marshal(cleaned)
	if err != nil {
		return err
	}
	c.Whitelist = string(encoded)
	return nil
}

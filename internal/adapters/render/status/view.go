package status

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/application"
	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
	// ExpiringWithin flags tokens that expire sooner than this.
	ExpiringWithin time.Duration
}

func renderView(status application.Status, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Skygear Session"),
		s.header.Render("endpoint: " + status.EndPoint),
	}

	lines = append(lines, s.section.Render(renderIdentity(status, opts, s)))
	lines = append(lines, s.section.Render(renderFlags(status, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderIdentity(status application.Status, opts RenderOptions, s styles) string {
	if !status.Authenticated {
		return s.empty.Render("Not logged in.")
	}

	parts := []string{s.user.Render(userTitle(status.User))}
	parts = append(parts, tokenLine(status.TokenExpiresAt, opts, s))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderFlags(status application.Status, s styles) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		flagLine("api key", status.APIKeySet, "set", "missing", s),
		flagLine("cache", status.CacheResponse, "on", "off", s),
		flagLine("auto pubsub", status.AutoPubsub, "on", "off", s),
	)
}

func flagLine(label string, on bool, onText, offText string, s styles) string {
	value := s.flagOff.Render(offText)
	if on {
		value = s.flagOn.Render(onText)
	}

	return s.key.Render(label+":") + " " + value
}

func userTitle(user *domain.Record) string {
	if user == nil {
		return "User: unknown"
	}
	if name, ok := user.Get("username"); ok {
		if text, ok := name.(string); ok && strings.TrimSpace(text) != "" {
			return fmt.Sprintf("User: %s (%s)", strings.TrimSpace(text), user.ID)
		}
	}

	return "User: " + user.ID
}

func tokenLine(expiresAt time.Time, opts RenderOptions, s styles) string {
	label := s.key.Render("token:")
	if expiresAt.IsZero() {
		return label + " " + s.detail.Render("opaque (expiry unknown)")
	}

	expiryStyle := lipgloss.NewStyle().Foreground(expiryColor(expiresAt, opts.Now, opts.ExpiringWithin))
	line := label + " " + expiryStyle.Render(formatExpiryRelative(expiresAt, opts.Now))

	if opts.Now.IsZero() {
		return line
	}
	if !expiresAt.After(opts.Now) {
		return line + " " + s.warning.Render("[expired]")
	}
	if opts.ExpiringWithin > 0 && expiresAt.Sub(opts.Now) < opts.ExpiringWithin {
		return line + " " + s.warning.Render("[expiring]")
	}

	return line
}

func renderRoles(roles map[string][]domain.Role, s styles) string {
	lines := []string{
		s.title.Render("User Roles"),
		s.header.Render(fmt.Sprintf("users: %d", len(roles))),
	}

	if len(roles) == 0 {
		lines = append(lines, s.empty.Render("No users requested."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	userIDs := make([]string, 0, len(roles))
	for id := range roles {
		userIDs = append(userIDs, id)
	}
	slices.Sort(userIDs)

	for _, id := range userIDs {
		lines = append(lines, s.key.Render(id+":")+" "+roleList(roles[id], s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func roleList(roles []domain.Role, s styles) string {
	names := domain.RoleNames(roles)
	if len(names) == 0 {
		return s.empty.Render("(none)")
	}

	return s.role.Render(strings.Join(names, ", "))
}

func formatExpiryAt(expiresAt, now time.Time) string {
	if now.IsZero() {
		return expiresAt.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := expiresAt.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return expiresAt.Format("15:04")
	}

	return expiresAt.Format("15:04 on 02 Jan")
}

func formatExpiryRelative(expiresAt, now time.Time) string {
	if now.IsZero() {
		return "expires " + formatExpiryAt(expiresAt, now)
	}

	if !expiresAt.After(now) {
		return "expired " + formatExpiryAt(expiresAt, now)
	}

	remaining := expiresAt.Sub(now)
	if remaining < 24*time.Hour {
		hours := max(int(math.Ceil(remaining.Hours())), 1)
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("expires in %d %s (%s)", hours, suffix, expiresAt.Format("15:04"))
	}

	days := max(int(math.Ceil(remaining.Hours()/24)), 1)
	suffix := "days"
	if days == 1 {
		suffix = "day"
	}

	return fmt.Sprintf("expires in %d %s (%s)", days, suffix, expiresAt.Format("15:04 on 02 Jan"))
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, 240 faded to 255 bright.
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(baseColor + (targetColor-baseColor)*normalized)

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}

// expiryColor brightens as the token approaches expiry within the window.
func expiryColor(expiresAt, now time.Time, window time.Duration) lipgloss.Color {
	if now.IsZero() || !expiresAt.After(now) || window <= 0 {
		return lipgloss.Color("255")
	}

	inverted := window.Seconds() - expiresAt.Sub(now).Seconds()
	return interpolateColor(inverted, 0, window.Seconds())
}

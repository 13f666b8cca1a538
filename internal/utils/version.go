package utils

import (
	"regexp"
	"strings"
)

var bannerVersionRe = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

// ExtractVersion достаёт версию ПО сервера из SSH-баннера,
// например "SSH-2.0-OpenSSH_9.6p1 Ubuntu-3ubuntu13" -> "9.6".
func ExtractVersion(banner string) string {
	software := ServerSoftware(banner)
	if software == "" {
		return ""
	}

	matches := bannerVersionRe.FindStringSubmatch(software)
	if len(matches) > 1 {
		return matches[1]
	}

	return ""
}

// ServerSoftware возвращает поле softwareversion баннера без комментария.
func ServerSoftware(banner string) string {
	banner = strings.TrimSpace(banner)
	if !strings.HasPrefix(banner, "SSH-") {
		return ""
	}

	// Формат баннера: SSH-protoversion-softwareversion SP comments
	parts := strings.SplitN(banner, "-", 3)
	if len(parts) < 3 {
		return ""
	}

	software, _, _ := strings.Cut(parts[2], " ")
	return software
}

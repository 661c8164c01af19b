package privacy

import (
	"strings"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits
// Example: "+1234567890" -> "+******7890"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 {
			return phone
		}
		if len(phone) <= 5 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-5) + phone[len(phone)-4:]
	}

	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskChatID masks a chat address, keeping the network-domain suffix
// Example: "1234567890@c.us" -> "******7890@c.us"
func MaskChatID(chatID string) string {
	if chatID == "" {
		return ""
	}

	if idx := strings.Index(chatID, "@"); idx >= 0 {
		numberPart := chatID[:idx]
		domainPart := chatID[idx:]

		if len(numberPart) <= 4 {
			return strings.Repeat("*", len(numberPart)) + domainPart
		}
		return strings.Repeat("*", len(numberPart)-4) + numberPart[len(numberPart)-4:] + domainPart
	}

	return MaskPhoneNumber(chatID)
}

// MaskMessageBody truncates a message body to a short, masked preview so
// message content never lands in logs at info level.
func MaskMessageBody(body string) string {
	const preview = 8
	runes := []rune(body)
	if len(runes) <= preview {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:preview]) + "..."
}

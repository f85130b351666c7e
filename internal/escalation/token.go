package escalation

import "strings"

// tokenMarker is the substring whose presence in a conversation identifier
// means the correlation token has already been applied.
const tokenMarker = "messageid"

// EncodeCorrelation returns the conversation identifier with the correlation
// token "{channelID};messageid={messageID}" applied. Encoding is idempotent:
// an identifier that already carries a token is returned unchanged, so a
// second claim or close on the same ticket never overwrites the correlation
// used by earlier updates.
func EncodeCorrelation(conversationID, channelID, messageID string) string {
	if HasCorrelation(conversationID) {
		return conversationID
	}
	return channelID + ";" + tokenMarker + "=" + messageID
}

// HasCorrelation reports whether a conversation identifier already carries
// a correlation token.
func HasCorrelation(conversationID string) bool {
	return strings.Contains(conversationID, tokenMarker)
}

// SplitConversationID separates a possibly-encoded conversation identifier
// into the bare channel identifier and the correlating message identifier.
// For an unencoded identifier, messageID is empty.
func SplitConversationID(conversationID string) (channelID, messageID string) {
	idx := strings.Index(conversationID, ";"+tokenMarker+"=")
	if idx < 0 {
		return conversationID, ""
	}
	return conversationID[:idx], conversationID[idx+len(";"+tokenMarker+"="):]
}

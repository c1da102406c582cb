package domain

// ChatCount is the number of stored messages in one chat
type ChatCount struct {
	ChatID int64
	Count  int
}

// Stats represents an aggregate snapshot of one message store
type Stats struct {
	TotalMessages     int
	ImportantMessages int
	AIResponses       int
	WhitelistedChats  int
	MessagesByChat    []ChatCount // Ordered by count, largest first
}

// TopChats returns at most n entries of MessagesByChat
func (s *Stats) TopChats(n int) []ChatCount {
	if n < 0 || n >= len(s.MessagesByChat) {
		return s.MessagesByChat
	}
	return s.MessagesByChat[:n]
}

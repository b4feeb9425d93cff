package internal

// CreateTestSession creates a test session with sample data
func CreateTestSession(id string) Session {
	return Session{
		ID:           id,
		Source:       SourceCursor,
		WorkspaceKey: "abc123hash",
		Title:        "Test Conversation",
		CreatedAt:    "2025-01-15T10:00:00Z",
		UpdatedAt:    "2025-01-15T11:00:00Z",
		MessageCount: 2,
		ProjectPath:  "/Users/testuser/dev/my-project",
	}
}

// CreateTestMessages creates a short user/assistant exchange
func CreateTestMessages() []Message {
	return []Message{
		{
			Role:      RoleUser,
			Content:   "Hello, how are you?",
			Timestamp: "2025-01-15T10:00:05Z",
			Type:      MessageTypeText,
		},
		{
			Role:      RoleAssistant,
			Content:   "I'm doing well, thank you!",
			Timestamp: "2025-01-15T10:00:10Z",
			Type:      MessageTypeText,
		},
	}
}

// CreateTestDetail creates a session detail with the sample exchange
func CreateTestDetail(id string) *SessionDetail {
	session := CreateTestSession(id)
	messages := CreateTestMessages()
	session.MessageCount = len(messages)
	return &SessionDetail{Session: session, Messages: messages}
}

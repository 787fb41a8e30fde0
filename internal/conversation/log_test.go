package conversation_test

import (
	"testing"

	"github.com/c2smotors/showroom/internal/conversation"
	"github.com/c2smotors/showroom/internal/models"
)

func TestLogAppendKeepsOrder(t *testing.T) {
	log := conversation.NewLog()

	log.Append(models.RoleUser, "first")
	log.Append(models.RoleAssistant, "second")
	log.Append(models.RoleUser, "third")

	msgs := log.Messages()
	if len(msgs) != 3 {
		t.Fatalf("Messages() len = %d, want 3", len(msgs))
	}

	want := []models.Message{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "second"},
		{Role: models.RoleUser, Content: "third"},
	}
	for i, m := range msgs {
		if m != want[i] {
			t.Errorf("Messages()[%d] = %+v, want %+v", i, m, want[i])
		}
	}

	if log.Len() != 3 {
		t.Errorf("Len() = %d, want 3", log.Len())
	}
}

func TestLogMessagesReturnsSnapshot(t *testing.T) {
	log := conversation.NewLog()
	log.Append(models.RoleUser, "hello")

	snapshot := log.Messages()
	snapshot[0].Content = "mutated"

	if got := log.Messages()[0].Content; got != "hello" {
		t.Errorf("log content = %q, want %q", got, "hello")
	}
}

func TestLogEmptyContentIsKept(t *testing.T) {
	log := conversation.NewLog()
	log.Append(models.RoleAssistant, "")

	if log.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", log.Len())
	}
	if got := log.Messages()[0].Content; got != "" {
		t.Errorf("content = %q, want empty", got)
	}
}

package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diogo/chatclient/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// FormatFromPath picks the export format from a file extension
func FormatFromPath(path string) ExportFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ExportFormatJSON
	}
	return ExportFormatMarkdown
}

// ExportMarkdown renders the committed messages as a Markdown transcript
func (s *Store) ExportMarkdown(title string) string {
	messages := s.Messages()

	var sb strings.Builder

	// Header
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")
	sb.WriteString("**Exported:** ")
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString("**Messages:** ")
	sb.WriteString(fmt.Sprintf("%d", len(messages)))
	sb.WriteString("\n\n---\n\n")

	for i, msg := range messages {
		role := "User"
		if msg.Role == models.RoleModel {
			role = "Model"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		sb.WriteString("\n\n")
		sb.WriteString(msg.Text)
		sb.WriteString("\n")

		if i < len(messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// ExportJSON encodes the committed messages in the wire history shape
func (s *Store) ExportJSON() ([]byte, error) {
	messages := s.Messages()

	type exportConversation struct {
		ExportedAt time.Time        `json:"exported_at"`
		History    []models.Content `json:"history"`
	}

	export := exportConversation{
		ExportedAt: time.Now().UTC(),
		History:    make([]models.Content, len(messages)),
	}
	for i, msg := range messages {
		export.History[i] = msg.Content()
	}

	return json.MarshalIndent(export, "", "  ")
}

// WriteExport writes a transcript to path, choosing the format from the
// file extension
func (s *Store) WriteExport(path string) error {
	var data []byte
	switch FormatFromPath(path) {
	case ExportFormatJSON:
		var err error
		data, err = s.ExportJSON()
		if err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
	default:
		data = []byte(s.ExportMarkdown("Chat " + time.Now().Format("2006-01-02 15:04")))
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadKnowledge reads every regular file in dir and concatenates the
// contents into one reference string for the chat system prompt. A missing
// directory is not an error; the assistant simply runs without grounding
// data.
func LoadKnowledge(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading knowledge directory: %w", err)
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return "", fmt.Errorf("reading knowledge file %s: %w", entry.Name(), err)
		}
		sb.Write(data)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adaptive-cs/insights/internal/models"
)

var (
	trailingCommaObj = regexp.MustCompile(`,\s*}`)
	trailingCommaArr = regexp.MustCompile(`,\s*]`)
)

// Read decodes one conversation per line. Blank lines are skipped. Lines
// that fail to parse get one repair attempt with trailing commas removed;
// lines that still fail are logged and dropped so one bad export does not
// sink the whole dataset.
func Read(r io.Reader, logger zerolog.Logger) ([]models.Conversation, error) {
	var convs []models.Conversation
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var conv models.Conversation
		if err := json.Unmarshal([]byte(line), &conv); err != nil {
			repaired := trailingCommaArr.ReplaceAllString(trailingCommaObj.ReplaceAllString(line, "}"), "]")
			if err := json.Unmarshal([]byte(repaired), &conv); err != nil {
				logger.Warn().Int("line", lineNo).Err(err).Msg("dropping unparseable dataset line")
				continue
			}
		}
		convs = append(convs, conv)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	return convs, nil
}

// ReadFile reads a JSONL dataset from disk.
func ReadFile(path string, logger zerolog.Logger) ([]models.Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f, logger)
}

// Write encodes one conversation per line.
func Write(w io.Writer, convs []models.Conversation) error {
	enc := json.NewEncoder(w)
	for _, c := range convs {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode conversation %s: %w", c.Meta.ConversationID, err)
		}
	}
	return nil
}

// WriteFile writes a JSONL dataset to disk, truncating any existing file.
func WriteFile(path string, convs []models.Conversation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	if err := Write(f, convs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

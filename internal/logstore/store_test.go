package logstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
	dir   string
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.store = New(filepath.Join(s.dir, "nested", "logs", "hooks.jsonl"))
	s.store.now = func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}
}

func (s *StoreSuite) TestAppend_CreatesParentDirectories() {
	err := s.store.Append(context.Background(), Record{
		EventType: "PreToolUse",
		ToolName:  "Bash",
		ToolInput: map[string]any{"command": "ls"},
		SessionID: "session-1",
	})
	s.Require().NoError(err)

	data, err := os.ReadFile(s.store.Path())
	s.Require().NoError(err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	s.Require().Len(lines, 1)
	s.Contains(lines[0], `"event_type":"PreToolUse"`)
	s.Contains(lines[0], `"tool_name":"Bash"`)
	s.Contains(lines[0], `"session_id":"session-1"`)
	s.Contains(lines[0], `"timestamp":"2026-01-02T03:04:05Z"`)
}

func (s *StoreSuite) TestAppend_FillsIDAndKeepsExplicitOnes() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, Record{ToolName: "Read"}))
	s.Require().NoError(s.store.Append(ctx, Record{ID: "fixed", ToolName: "Write"}))

	records, err := s.store.Tail(0)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.NotEmpty(records[0].ID)
	s.Equal("fixed", records[1].ID)
}

func (s *StoreSuite) TestAppend_ConcurrentWritersKeepRecordsWhole() {
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Separate stores mimic independent processes sharing the file.
			store := New(s.store.Path())
			s.NoError(store.Append(context.Background(), Record{ToolName: fmt.Sprintf("tool-%d", i)}))
		}(i)
	}
	wg.Wait()

	records, err := s.store.Tail(0)
	s.Require().NoError(err)
	s.Len(records, writers)
}

func (s *StoreSuite) TestTail() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Append(ctx, Record{ToolName: fmt.Sprintf("tool-%d", i)}))
	}

	f, err := os.OpenFile(s.store.Path(), os.O_APPEND|os.O_WRONLY, 0644)
	s.Require().NoError(err)
	_, err = f.WriteString("not json\n")
	s.Require().NoError(err)
	s.Require().NoError(f.Close())

	records, err := s.store.Tail(2)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("tool-3", records[0].ToolName)
	s.Equal("tool-4", records[1].ToolName)
}

func (s *StoreSuite) TestTail_MissingFile() {
	_, err := New(filepath.Join(s.dir, "missing.jsonl")).Tail(10)
	s.Error(err)
}

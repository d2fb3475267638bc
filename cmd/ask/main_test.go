package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

func TestAppFlags(t *testing.T) {
	app := newApp()

	t.Run("mode defaults to AUTO", func(t *testing.T) {
		var modeFlag *cli.StringFlag
		for _, flag := range app.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "mode" {
				modeFlag = f
				break
			}
		}
		require.NotNil(t, modeFlag)
		assert.Equal(t, "AUTO", modeFlag.Value)
	})

	t.Run("question is required", func(t *testing.T) {
		err := app.Run([]string{"ask"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "question")
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		err := app.Run([]string{"ask", "--mode", "GRAPH", "câu hỏi"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestEventPrinterText(t *testing.T) {
	var out, status bytes.Buffer
	p := newEventPrinter(&out, &status, false)

	events := []domain.Event{
		domain.StatusEvent("Đang tìm kiếm..."),
		domain.SourcesEvent([]domain.CandidateDocument{{ID: "doc_1"}}),
		domain.ContentEvent("Được nghỉ 12 ngày."),
		domain.UsedDocsEvent([]domain.CandidateDocument{
			{ID: "doc_1", Title: "Bộ luật Lao động"},
			{ID: "https://x.vn/a", URL: "https://x.vn/a", Title: "Bài viết"},
		}),
	}
	for _, e := range events {
		require.NoError(t, p.print(e))
	}

	assert.Contains(t, status.String(), "Đang tìm kiếm...")
	assert.Contains(t, status.String(), "1 sources")
	assert.True(t, strings.HasPrefix(out.String(), "Được nghỉ 12 ngày."))
	assert.Contains(t, out.String(), "1. Bộ luật Lao động [doc_1]")
	assert.Contains(t, out.String(), "2. Bài viết (https://x.vn/a)")
}

func TestEventPrinterJSON(t *testing.T) {
	var out, status bytes.Buffer
	p := newEventPrinter(&out, &status, true)

	require.NoError(t, p.print(domain.ContentEvent("xin chào")))
	require.NoError(t, p.print(domain.ErrorEvent("lỗi")))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	var first, second map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, map[string]string{"type": "content", "delta": "xin chào"}, first)
	assert.Equal(t, map[string]string{"type": "error", "content": "lỗi"}, second)
	assert.Empty(t, status.String())
}

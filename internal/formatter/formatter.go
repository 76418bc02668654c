// package formatter renders the play queue as a terminal table and exports it to CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/queue"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// CursorMarker prefixes the row of the track under the cursor.
const CursorMarker = "▶"

// Row is one queue entry with its metadata resolved for display.
type Row struct {
	Position int
	ID       models.MediaID
	Title    string
	Artist   string
	Duration int
	Current  bool
}

// Rows resolves every queue entry of s. Entries without metadata show their id as the title.
func Rows(s queue.State) []Row {
	rows := make([]Row, len(s.Queue))
	for i, id := range s.Queue {
		row := Row{Position: i + 1, ID: id, Title: id.ID, Current: i == s.Cursor}
		if info, ok := s.MediaInfo.Get(id); ok {
			if info.Title != "" {
				row.Title = info.Title
			}
			row.Artist = info.Artist()
			row.Duration = info.DurationMS
		}
		rows[i] = row
	}
	return rows
}

// FormatDuration renders milliseconds as m:ss, or h:mm:ss past an hour. Unknown durations render as --:--.
func FormatDuration(ms int) string {
	if ms <= 0 {
		return "--:--"
	}
	d := time.Duration(ms) * time.Millisecond
	h, m, sec := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

// WriteQueueTable renders the queue of s as a table, marking the cursor row.
func WriteQueueTable(w io.Writer, s queue.State) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "#", "Title", "Artist", "Duration", "Provider"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 48},
		{Number: 4, WidthMax: 32},
		{Number: 5, Align: text.AlignRight},
	})

	total := 0
	for _, r := range Rows(s) {
		marker := ""
		if r.Current {
			marker = CursorMarker
		}
		total += r.Duration
		t.AppendRow(table.Row{marker, r.Position, r.Title, r.Artist, FormatDuration(r.Duration), r.ID.Provider})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d tracks", len(s.Queue)), "", FormatDuration(total), ""})
	t.Render()
}

// ExportToCSV converts the queue to CSV with columns: Position, Provider, ID, Title, Artist, DurationMS
func ExportToCSV(s queue.State) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Provider", "ID", "Title", "Artist", "DurationMS"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range Rows(s) {
		record := []string{
			strconv.Itoa(r.Position),
			r.ID.Provider.String(),
			r.ID.ID,
			r.Title,
			r.Artist,
			strconv.Itoa(r.Duration),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts the queue to Markdown with an optional cover image
func ExportToMarkdown(s queue.State, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# mixtape\n\n")

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if len(s.Playlists) > 0 {
		buf.WriteString("## Playlists\n\n")
		for _, p := range s.Playlists {
			fmt.Fprintf(&buf, "- %s (`%s`, %d tracks)\n", p.Title, p.Ref(), p.ItemCount)
		}
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(s.Queue))
	fmt.Fprintf(&buf, "**Shuffle**: %s\n\n", onOff(s.IsShuffleOn))

	buf.WriteString("## Queue\n\n")
	for _, r := range Rows(s) {
		artist := ""
		if r.Artist != "" {
			artist = r.Artist + " - "
		}
		fmt.Fprintf(&buf, "%d. %s%s [%s] (%s)\n", r.Position, artist, r.Title, FormatDuration(r.Duration), r.ID.Provider)
	}

	return buf.Bytes(), nil
}

// ExportToText converts the queue to plain text
func ExportToText(s queue.State) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(s.Queue))
	for _, r := range Rows(s) {
		marker := " "
		if r.Current {
			marker = CursorMarker
		}
		if r.Artist != "" {
			fmt.Fprintf(&buf, "%s %d. %s - %s\n", marker, r.Position, r.Artist, r.Title)
		} else {
			fmt.Fprintf(&buf, "%s %d. %s\n", marker, r.Position, r.Title)
		}
	}

	return buf.Bytes(), nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md and, when the current track has a thumbnail, {dir}/cover.jpg.
// A failed cover download is reported through warn and the export continues without it.
func WriteMarkdownExport(s queue.State, outputDir string, client *http.Client, warn func(error)) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "mixtape_queue"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir}

	var coverImageFilename string
	if info, ok := s.CurrentInfo(); ok && info.Thumbnail.URL != "" {
		imageData, err := DownloadImage(client, info.Thumbnail.URL)
		if err == nil {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err = os.WriteFile(coverImagePath, imageData, 0644); err == nil {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			} else {
				coverImageFilename = ""
			}
		}
		if err != nil && warn != nil {
			warn(err)
		}
	}

	mdData, err := ExportToMarkdown(s, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteExport writes the queue in format (csv or txt) to path.
func WriteExport(s queue.State, format, path string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "csv":
		data, err = ExportToCSV(s)
	case "txt", "text":
		data, err = ExportToText(s)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}

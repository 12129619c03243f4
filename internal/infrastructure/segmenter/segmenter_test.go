package segmenter

import (
	"strings"
	"testing"
)

func TestSegmentByArticleMarkers(t *testing.T) {
	text := "LUẬT GIAO THÔNG ĐƯỜNG BỘ\n" +
		"Điều 1. Phạm vi điều chỉnh\nLuật này quy định về quy tắc giao thông.\n" +
		"Điều 2. Đối tượng áp dụng\nLuật này áp dụng với mọi tổ chức.\n" +
		"Điều 3a. Giải thích từ ngữ\nTrong Luật này, các từ ngữ dưới đây."

	chunks := New(1000, 200).Segment(text)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Text, "Điều 1.\n") {
		t.Errorf("chunk 0 = %q", chunks[0].Text)
	}
	if chunks[0].Article != "1" || chunks[1].Article != "2" || chunks[2].Article != "3a" {
		t.Errorf("articles = %s,%s,%s", chunks[0].Article, chunks[1].Article, chunks[2].Article)
	}
	// Preamble before the first marker is dropped.
	for _, c := range chunks {
		if strings.Contains(c.Text, "LUẬT GIAO THÔNG") {
			t.Error("preamble leaked into a chunk")
		}
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestSegmentMarkerCaseInsensitive(t *testing.T) {
	text := "điều 5. Nội dung thứ nhất.\nĐIỀU 6. Nội dung thứ hai."
	chunks := New(1000, 200).Segment(text)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Article != "5" || chunks[1].Article != "6" {
		t.Errorf("articles = %s,%s", chunks[0].Article, chunks[1].Article)
	}
}

func TestSegmentFallbackWindow(t *testing.T) {
	sentence := "Đây là một câu văn bản tiếng Việt dùng để kiểm tra. "
	text := strings.Repeat(sentence, 60)

	s := New(1000, 200)
	chunks := s.Segment(text)
	if len(chunks) < 2 {
		t.Fatalf("long text produced %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c.Text)); n > s.ChunkSize {
			t.Errorf("chunk %d has %d runes, over the window size", i, n)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
	// Every rune of the input text must appear in some chunk.
	joined := strings.Join(func() []string {
		out := make([]string, len(chunks))
		for i, c := range chunks {
			out[i] = c.Text
		}
		return out
	}(), "")
	probe := strings.TrimSpace(text[len(text)-100:])
	if !strings.Contains(joined, probe) {
		t.Error("tail of the document missing from chunks")
	}
}

func TestSegmentFallbackPrefersSentenceBoundary(t *testing.T) {
	// One period placed past the window midpoint, the rest of the text
	// unbroken. The first chunk must end right after that period.
	text := strings.Repeat("a", 700) + ". " + strings.Repeat("b", 900)
	chunks := New(1000, 200).Segment(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Errorf("first chunk does not end at the sentence boundary: ...%q", chunks[0].Text[len(chunks[0].Text)-10:])
	}
	if n := len([]rune(chunks[0].Text)); n != 701 {
		t.Errorf("first chunk length = %d runes, want 701", n)
	}
}

func TestSegmentFallbackOverlap(t *testing.T) {
	text := strings.Repeat("x", 1800)
	chunks := New(1000, 200).Segment(text)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if n := len([]rune(chunks[1].Text)); n != 1000 {
		t.Errorf("second chunk = %d runes, want 1000 (800 new + 200 overlap)", n)
	}
}

func TestSegmentEmptyAndBlank(t *testing.T) {
	s := New(1000, 200)
	if got := s.Segment(""); got != nil {
		t.Errorf("empty input produced %d chunks", len(got))
	}
	if got := s.Segment("   \n\t  "); got != nil {
		t.Errorf("blank input produced %d chunks", len(got))
	}
}

func TestSegmentMarkerWithEmptyBodyFallsBack(t *testing.T) {
	text := "Điều 7."
	chunks := New(1000, 200).Segment(text)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 from the window fallback", len(chunks))
	}
	if chunks[0].Article != "" {
		t.Errorf("fallback chunk carries article %q", chunks[0].Article)
	}
}

func TestNewClampsConfig(t *testing.T) {
	s := New(0, -5)
	if s.ChunkSize != 1000 || s.Overlap != 0 {
		t.Errorf("defaults = %d/%d", s.ChunkSize, s.Overlap)
	}
	s = New(100, 150)
	if s.Overlap != 25 {
		t.Errorf("oversized overlap clamped to %d, want 25", s.Overlap)
	}
	s = New(1000, 600)
	if s.Overlap != 500 {
		t.Errorf("over-half overlap clamped to %d, want 500", s.Overlap)
	}
}

func TestSegmentLargeOverlapTerminates(t *testing.T) {
	// A sentence boundary just past the window midpoint combined with an
	// overlap above half the window used to pull the next start backwards.
	text := strings.Repeat("a", 700) + ". " + strings.Repeat("b", 2000)
	chunks := New(1000, 600).Segment(text)
	if len(chunks) == 0 || len(chunks) > 20 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	joined := make([]string, len(chunks))
	for i, c := range chunks {
		joined[i] = c.Text
	}
	if !strings.Contains(strings.Join(joined, ""), strings.Repeat("b", 100)) {
		t.Error("tail of the document missing from chunks")
	}
}

func TestSegmentWindowAlwaysAdvances(t *testing.T) {
	// Built directly so the constructor clamp does not apply.
	s := &Segmenter{ChunkSize: 1000, Overlap: 900}
	text := strings.Repeat("c", 600) + ". " + strings.Repeat("d", 1500)
	chunks := s.Segment(text)
	if len(chunks) == 0 || len(chunks) > 50 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	last := chunks[len(chunks)-1].Text
	if !strings.HasSuffix(last, "d") {
		t.Errorf("last chunk does not reach the end of the text: %q", last[len(last)-10:])
	}
}

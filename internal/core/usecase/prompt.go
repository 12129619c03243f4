package usecase

import (
	"fmt"
	"strings"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

// NoContextAnswer is returned verbatim when retrieval yields zero hits.
const NoContextAnswer = "Xin lỗi, tôi không tìm thấy thông tin liên quan đến câu hỏi của bạn trong cơ sở dữ liệu pháp luật."

const legalRAGSystemPrompt = `Bạn là Trợ lý Luật sư AI chuyên nghiệp, trung thực và chính xác.
Nhiệm vụ của bạn là trả lời câu hỏi dựa trên các đoạn văn bản pháp luật được cung cấp dưới đây.

YÊU CẦU BẮT BUỘC:
1. CHỈ sử dụng thông tin trong phần CONTEXT. KHÔNG tự bịa ra thông tin.
2. Nếu context không có thông tin để trả lời, HÃY NÓI THẲNG: "Xin lỗi, tôi không tìm thấy thông tin trong tài liệu pháp luật được cung cấp."
3. Mọi câu trả lời PHẢI có trích dẫn cụ thể (Ví dụ: [Điều 123, Bộ luật Hình sự]).
4. Trình bày ngắn gọn, súc tích, đi thẳng vào vấn đề.
5. Giữ giọng văn khách quan, chuyên nghiệp.`

const sourcePreviewLimit = 500

// buildContext renders surviving hits as numbered citation blocks joined by
// a blank line: "[<rank>] Điều <d>[, Khoản <k>]:\n<text>" when article
// metadata exists, "[<rank>] <text>" otherwise.
func buildContext(results []domain.FusedResult) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		citation := ""
		if r.DieuNumber != "" {
			citation = "Điều " + r.DieuNumber
			if r.KhoanNumber != "" {
				citation += ", Khoản " + r.KhoanNumber
			}
		}
		if citation != "" {
			parts = append(parts, fmt.Sprintf("[%d] %s:\n%s", i+1, citation, r.Text))
		} else {
			parts = append(parts, fmt.Sprintf("[%d] %s", i+1, r.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}

func buildRAGPrompt(question, context string) string {
	return fmt.Sprintf(`Ngữ cảnh pháp lý:
%s

---

Câu hỏi: %s

Dựa trên ngữ cảnh pháp lý được cung cấp ở trên, hãy trả lời câu hỏi một cách chính xác và đầy đủ. Trích dẫn số Điều, Khoản cụ thể khi cần thiết.`, context, question)
}

func formatSources(results []domain.FusedResult) []domain.Source {
	sources := make([]domain.Source, 0, len(results))
	for i, r := range results {
		sources = append(sources, domain.Source{
			Text:        truncateRunes(r.Text, sourcePreviewLimit),
			SourceType:  r.SourceType,
			DieuNumber:  r.DieuNumber,
			KhoanNumber: r.KhoanNumber,
			FileName:    r.FileName,
			Score:       r.FusionScore,
			RerankScore: r.RerankScore,
			Rank:        i + 1,
		})
	}
	return sources
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

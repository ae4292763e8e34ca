// internal/parser/parser.go
package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Voxlit/NovelVoiceStudio/internal/models"
)

// FallbackChapterTitle 未识别到任何章节标题时使用的标题
const FallbackChapterTitle = "正文"

// DefaultCharsPerSecond 中文平均语速约 3-4 字/秒
const DefaultCharsPerSecond = 3.5

// 章节标题识别模式，按优先级排列
var chapterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^第[零一二三四五六七八九十百千0-9]+章\s*.+`),
	regexp.MustCompile(`^第[零一二三四五六七八九十百千0-9]+节\s*.+`),
	regexp.MustCompile(`^Chapter\s+\d+`),
	regexp.MustCompile(`^\d+[.、]\s*.+`),
	regexp.MustCompile(`^[零一二三四五六七八九十百千]+[.、]\s*.+`),
}

// 对话标记识别模式，按优先级排列，命中第一个即停
var dialoguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(.+?)说：["“”](.+?)["“”]`),
	regexp.MustCompile(`(.+?)道：["“”](.+?)["“”]`),
	regexp.MustCompile(`(.+?)：["“”](.+?)["“”]`),
	regexp.MustCompile(`["“”](.+?)["“”]，(.+?)说`),
}

// SplitChapters 把原始文本按章节标题分割为有序的章节草稿。
// 逐行扫描，命中标题模式的行开启新章节；标题之前、无章节打开时的行被丢弃。
// 整篇都没有标题时，全文作为单章返回，标题为 FallbackChapterTitle。
// 对于非空输入，返回值永不为空。
func SplitChapters(text string) []models.ChapterDraft {
	var chapters []models.ChapterDraft
	var current *models.ChapterDraft
	var content []string

	orderIndex := 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isChapterTitle(line) {
			// 关闭上一章
			if current != nil {
				current.Content = strings.Join(content, "\n")
				current.WordCount = len([]rune(current.Content))
				chapters = append(chapters, *current)
			}

			current = &models.ChapterDraft{
				Title:      line,
				OrderIndex: orderIndex,
			}
			content = nil
			orderIndex++

			continue
		}

		if current != nil {
			content = append(content, line)
		}
	}

	// 关闭最后一章
	if current != nil {
		current.Content = strings.Join(content, "\n")
		current.WordCount = len([]rune(current.Content))
		chapters = append(chapters, *current)
	}

	// 没有识别到任何章节，整个文本作为一章
	if len(chapters) == 0 {
		chapters = append(chapters, models.ChapterDraft{
			Title:      FallbackChapterTitle,
			OrderIndex: 0,
			Content:    text,
			WordCount:  len([]rune(text)),
		})
	}

	return chapters
}

func isChapterTitle(line string) bool {
	for _, pattern := range chapterPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}

	return false
}

// ExtractDialogues 把章节文本按段落提取为有序的对话/旁白记录。
// 每个非空段落依次套用对话模式，取第一个命中的；两个捕获组中较短的
// 作为角色名，较长的作为对话内容，长度相等时第一个捕获组作为角色名。
// 没有模式命中的段落记为旁白。空文本返回空序列。
func ExtractDialogues(text string) []models.DialogueDraft {
	var drafts []models.DialogueDraft

	idx := 0

	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		speaker, content := matchDialogue(para)
		if speaker != "" && content != "" {
			drafts = append(drafts, models.DialogueDraft{
				Type:       models.DialogueTypeDialogue,
				Speaker:    speaker,
				Content:    content,
				OrderIndex: idx,
			})
		} else {
			drafts = append(drafts, models.DialogueDraft{
				Type:       models.DialogueTypeNarration,
				Content:    para,
				OrderIndex: idx,
			})
		}

		idx++
	}

	return drafts
}

// matchDialogue 返回段落中识别出的角色名与对话内容，未命中时均为空。
// 用字符串长度区分角色名和内容是一个已知的精度上限，按组顺序确定性裁决。
func matchDialogue(para string) (speaker, content string) {
	for _, pattern := range dialoguePatterns {
		groups := pattern.FindStringSubmatch(para)
		if len(groups) < 3 {
			continue
		}

		first := strings.TrimSpace(groups[1])
		second := strings.TrimSpace(groups[2])

		if len([]rune(first)) <= len([]rune(second)) {
			return first, second
		}

		return second, first
	}

	return "", ""
}

// ExtractCharacters 从段落记录中提取去重并按字典序排序的角色名列表
func ExtractCharacters(drafts []models.DialogueDraft) []string {
	seen := make(map[string]bool)

	var names []string

	for _, draft := range drafts {
		if draft.Speaker == "" || seen[draft.Speaker] {
			continue
		}

		seen[draft.Speaker] = true
		names = append(names, draft.Speaker)
	}

	sort.Strings(names)

	return names
}

// EstimateDuration 按固定语速估算文本朗读时长(秒)，向下取整
func EstimateDuration(text string, charsPerSecond float64) int {
	if charsPerSecond <= 0 {
		charsPerSecond = DefaultCharsPerSecond
	}

	return int(float64(len([]rune(text))) / charsPerSecond)
}

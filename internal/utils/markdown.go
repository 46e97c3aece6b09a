package utils

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	notesPolicy = bluemonday.UGCPolicy()
	textPolicy  = bluemonday.StrictPolicy()
)

// RenderNotes 把冲煮笔记的 Markdown 渲染为净化过的 HTML
func RenderNotes(source string) string {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return textPolicy.Sanitize(source) // Fallback
	}
	return string(notesPolicy.SanitizeBytes(buf.Bytes()))
}

// SanitizeText 评论、简介等纯文本字段入库前剥掉所有标签
func SanitizeText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

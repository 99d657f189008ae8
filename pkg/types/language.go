package types

import (
	"path"
	"strings"
)

// languageByExtension is the fixed lookup table mapping file
// extensions to protocol language tags
var languageByExtension = map[string]string{
	".go":    "go",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".py":    "python",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".sql":   "sql",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".md":    "markdown",
	".html":  "html",
	".css":   "css",
}

// LanguageForPath infers a language tag from a file path's extension.
// Unknown extensions map to the generic "text" tag.
func LanguageForPath(filePath string) string {
	ext := strings.ToLower(path.Ext(filePath))
	if lang, ok := languageByExtension[ext]; ok {
		return lang
	}
	return "text"
}

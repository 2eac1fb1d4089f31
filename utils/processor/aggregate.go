package processor

// Section headers of the aggregate document, in output order
const (
	HeaderPoem        = "=== 中文诗句 ==="
	HeaderTranslation = "=== 英文诗句 ==="
	HeaderImagePrompt = "=== 图像提示 ==="
)

// Aggregate concatenates the poem, its translation and the image prompt
// under fixed headers. Section order never depends on content.
func Aggregate(poem, translation, imagePrompt string) string {
	return HeaderPoem + "\n" + poem + "\n\n" +
		HeaderTranslation + "\n" + translation + "\n\n" +
		HeaderImagePrompt + "\n" + imagePrompt
}

package vision

import "fmt"

// systemPrompt frames the model as an accessibility specialist. The rules
// mirror the downstream validation policy so most answers pass on the first
// try.
const systemPrompt = `You are an accessibility specialist writing alternative text for images in documents. Follow these rules:
- Describe the essential content and purpose of the image in one or two sentences.
- Be specific and concrete. Mention text visible in the image if it matters.
- Do not begin with phrases like "image of", "picture of", "photo of", "graphic showing", or "screenshot of".
- Start with a capital letter and end with a period.
- Keep the description between 50 and 200 characters. Never exceed 250 characters.
- If the image is purely decorative and conveys no information, respond with exactly: DECORATIVE`

// userPrompt attaches the merged document context to the request.
func userPrompt(mergedContext string) string {
	if mergedContext == "" {
		return "Write alternative text for this image."
	}
	return fmt.Sprintf(
		"Write alternative text for this image. Use the surrounding document context to make the description relevant:\n\n%s",
		mergedContext)
}

// DecorativeAnswer is the sentinel reply indicating the image carries no
// information and should receive empty alt text.
const DecorativeAnswer = "DECORATIVE"

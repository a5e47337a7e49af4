package vision

import "strings"

// modelRate holds USD prices per million tokens.
type modelRate struct {
	prompt     float64
	completion float64
}

// rates covers the commonly used hosted vision models. Unknown models cost
// zero; local providers report zero usage anyway.
var rates = map[string]modelRate{
	"gpt-4o":           {prompt: 2.50, completion: 10.00},
	"gpt-4o-mini":      {prompt: 0.15, completion: 0.60},
	"gpt-4.1":          {prompt: 2.00, completion: 8.00},
	"gpt-4.1-mini":     {prompt: 0.40, completion: 1.60},
	"gemini-2.5-flash": {prompt: 0.30, completion: 2.50},
	"gemini-2.5-pro":   {prompt: 1.25, completion: 10.00},
}

// estimateCost returns the approximate request cost in USD. Version-suffixed
// model names match their base entry.
func estimateCost(model string, promptTokens, completionTokens int) float64 {
	r, ok := rates[model]
	if !ok {
		for name, mr := range rates {
			if strings.HasPrefix(model, name) {
				r = mr
				ok = true
				break
			}
		}
	}
	if !ok {
		return 0
	}
	return float64(promptTokens)*r.prompt/1e6 + float64(completionTokens)*r.completion/1e6
}

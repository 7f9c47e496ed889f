package estimator

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// fairValueTemplate is the analysis prompt. `{{#if var}}...{{/if}}`
// conditional blocks are spliced by replaceConditionalBlock/
// removeConditionalBlocks before the template is sent — there is no
// general-purpose templating engine, by design: the set of variables is
// small and fixed, and the splice is simpler to reason about than pulling
// in html/template for a single conditional.
const fairValueTemplate = `You are a prediction market analyst estimating the fair probability of a binary outcome.

Market question: {{question}}
Resolution criteria: {{resolution_criteria}}
End date: {{end_date}}
Category: {{category}}

Current YES price: {{yes_price}} (implied probability)
Current NO price: {{no_price}}
24h volume: ${{volume_24h}}
Liquidity: ${{liquidity}}

{{#if weather_data}}
{{weather_data}}
{{/if}}
{{#if sports_data}}
{{sports_data}}
{{/if}}
{{#if crypto_data}}
{{crypto_data}}
{{/if}}
{{#if news_data}}
{{news_data}}
{{/if}}
Estimate the true probability this market resolves YES. Respond with ONLY a JSON object of the form:
{"probability": <0-1>, "confidence": <0-1>, "reasoning": "<one paragraph>", "data_quality": "high"|"medium"|"low"}
`

// renderPrompt fills in the fixed fields and splices the weather
// conditional block in or out. The sports/crypto/news blocks are always
// removed — those verticals are out of scope, but the template inherits
// their placeholders from a more general original.
func renderPrompt(market domain.Market, yesPrice float64, weather *domain.WeatherContext) string {
	noPrice := 1.0 - yesPrice
	endDate := "Unknown"
	if !market.EndDate.IsZero() {
		endDate = market.EndDate.Format("2006-01-02T15:04:05Z")
	}

	prompt := fairValueTemplate
	prompt = strings.ReplaceAll(prompt, "{{question}}", market.Question)
	prompt = strings.ReplaceAll(prompt, "{{resolution_criteria}}", "See market description")
	prompt = strings.ReplaceAll(prompt, "{{end_date}}", endDate)
	prompt = strings.ReplaceAll(prompt, "{{category}}", "General")
	prompt = strings.ReplaceAll(prompt, "{{yes_price}}", fmt.Sprintf("%.2f", yesPrice))
	prompt = strings.ReplaceAll(prompt, "{{no_price}}", fmt.Sprintf("%.2f", noPrice))
	prompt = strings.ReplaceAll(prompt, "{{volume_24h}}", fmt.Sprintf("%.0f", market.Volume24h))
	prompt = strings.ReplaceAll(prompt, "{{liquidity}}", fmt.Sprintf("%.0f", market.Liquidity))

	if weather != nil {
		prompt = replaceConditionalBlock(prompt, "weather_data", renderWeatherBlock(*weather))
	} else {
		prompt = removeConditionalBlocks(prompt, "weather_data")
	}
	prompt = removeConditionalBlocks(prompt, "sports_data")
	prompt = removeConditionalBlocks(prompt, "crypto_data")
	prompt = removeConditionalBlocks(prompt, "news_data")

	return prompt
}

func renderWeatherBlock(wx domain.WeatherContext) string {
	var b strings.Builder
	b.WriteString("### Weather Ensemble Forecast\n")
	fmt.Fprintf(&b, "- **City:** %s\n", wx.Probs.City)
	fmt.Fprintf(&b, "- **Station:** %s (resolution source: Weather Underground)\n", wx.Probs.StationICAO)
	fmt.Fprintf(&b, "- **Forecast date:** %s\n", wx.Probs.ForecastDate)
	fmt.Fprintf(&b, "- **Ensemble members:** %d GEFS + %d ECMWF = %d total\n",
		wx.Probs.GEFSCount, wx.Probs.ECMWFCount, wx.Probs.GEFSCount+wx.Probs.ECMWFCount)
	fmt.Fprintf(&b, "- **Combined ensemble mean:** %.1f°F\n", wx.Probs.EnsembleMean)
	fmt.Fprintf(&b, "- **Combined ensemble std dev:** %.1f°F\n", wx.Probs.EnsembleStd)
	b.WriteString("- **Temperature bucket probabilities:**\n")
	for _, bucket := range wx.Probs.Buckets {
		if bucket.Probability > 0.005 {
			fmt.Fprintf(&b, "  - %s°F: %.1f%%\n", bucket.BucketLabel, bucket.Probability*100.0)
		}
	}
	if wx.Probs.ForecastHigh != nil {
		fmt.Fprintf(&b, "- **NWS Official Forecast High:** %.0f°F\n", *wx.Probs.ForecastHigh)
	}
	if wx.Probs.BiasCorrection != nil {
		fmt.Fprintf(&b, "- **Bias Correction Applied:** %+.1f°F (ensemble shifted to match NWS)\n", *wx.Probs.BiasCorrection)
	}
	if wx.ModelProbability != nil {
		fmt.Fprintf(&b, "- **Model probability for this outcome:** %.1f%%\n", *wx.ModelProbability*100.0)
	}
	return b.String()
}

// replaceConditionalBlock replaces the first {{#if var}}...{{/if}} block
// (tags included) with content.
func replaceConditionalBlock(template, varName, content string) string {
	startTag := "{{#if " + varName + "}}"
	endTag := "{{/if}}"

	startPos := strings.Index(template, startTag)
	if startPos == -1 {
		return template
	}
	rest := template[startPos:]
	endOffset := strings.Index(rest, endTag)
	if endOffset == -1 {
		return template
	}
	endAbs := startPos + endOffset + len(endTag)
	if endAbs < len(template) && template[endAbs] == '\n' {
		endAbs++
	}
	return template[:startPos] + content + template[endAbs:]
}

// removeConditionalBlocks strips every {{#if var}}...{{/if}} block for var.
func removeConditionalBlocks(template, varName string) string {
	startTag := "{{#if " + varName + "}}"
	endTag := "{{/if}}"

	result := template
	for {
		startPos := strings.Index(result, startTag)
		if startPos == -1 {
			break
		}
		rest := result[startPos:]
		endOffset := strings.Index(rest, endTag)
		if endOffset == -1 {
			break
		}
		endAbs := startPos + endOffset + len(endTag)
		if endAbs < len(result) && result[endAbs] == '\n' {
			endAbs++
		}
		result = result[:startPos] + result[endAbs:]
	}
	return result
}

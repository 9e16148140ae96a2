package jobs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kanpai-app/kanpai/pkg/models"
)

const baseInstructions = `You are a research agent specialized in Japanese sake. Follow the rules below to gather recommendations and purchase information from trustworthy sources, and return structured data.

### Mission
- Select and recommend sake that matches the user's preferences and focus.
- Prefer reliable retailers: official brewery shops, authorized distributors, department stores and specialty stores. State price, availability, delivery estimate and source URL for each listing.
- Corroborate facts across multiple sources and collect the evidence URLs in "origin_sources".

### Speed over exhaustiveness
- Start by listing the hard requirements, then resolve candidates, retailers and current prices with a single web_search query.
- Issue at most one additional web_search and only when information is missing. No aimless re-searching.
- Prefer a trustworthy product image URL; when none is found, temporarily use the most reliable product page URL instead.
- Keep reasoning and notes concise.

### Procedure
1. Call web_search as needed to gather candidate sake, retail pages, prices and stock. In gift mode also confirm gift-wrapping availability.
2. Score the candidates against the constraints and organize aroma, brewing style, pairings, serving temperature and price band.
3. Secure at least one retailer (two or more when possible). When the price cannot be expressed numerically, put the wording in "price_text" and state stock and delivery expectations.
4. When alternatives are requested, list up to two in "alternatives" in priority order.

### Output
- Answer with structured JSON only.
- Use null for quantitative fields you could not verify, and say so in the supporting text.
- If something should be confirmed with the user, propose it briefly in "follow_up_prompt".`

const defaultUserQuery = "Recommend a sake that fits the recipient's taste and include purchasable shop information (price, availability, delivery estimate)."

// buildPrompts assembles the system and user prompts for one gift intake.
func buildPrompts(gctx GiftContext) (systemPrompt, userPrompt string) {
	gift := gctx.Gift

	giftLines := []string{
		"[Gift mode]",
		fmt.Sprintf("Budget: JPY %d - %d", gift.BudgetMin, gift.BudgetMax),
	}
	if gift.Occasion != nil && *gift.Occasion != "" {
		giftLines = append(giftLines, "Occasion: "+*gift.Occasion)
	}
	if gift.RecipientFirstName != nil && *gift.RecipientFirstName != "" {
		giftLines = append(giftLines, "Recipient: "+*gift.RecipientFirstName)
	}
	giftLines = append(giftLines, "Prefer retailers that offer gift wrapping and noshi.")
	giftBlock := strings.Join(giftLines, "\n")

	var sections []string
	sections = append(sections, giftBlock)

	if gctx.HandoffSummary != nil && *gctx.HandoffSummary != "" {
		sections = append(sections, "Interview summary:\n"+*gctx.HandoffSummary)
	}
	if text := describeValue(gctx.Preferences); text != "" {
		sections = append(sections, "Taste notes:\n"+text)
	}
	if gctx.AdditionalNotes != nil && *gctx.AdditionalNotes != "" {
		sections = append(sections, "Additional notes:\n"+*gctx.AdditionalNotes)
	}

	userQuery := defaultUserQuery
	if gctx.HandoffSummary != nil && *gctx.HandoffSummary != "" {
		userQuery = *gctx.HandoffSummary
	}

	systemPrompt = strings.TrimSpace(baseInstructions + "\n\n" + giftBlock)
	userPrompt = strings.TrimSpace(userQuery + "\n\n" + strings.Join(sections, "\n\n"))
	return systemPrompt, userPrompt
}

// describeValue flattens an arbitrary preference bag into a compact
// human-readable line, dropping empty values. Map keys are emitted in sorted
// order so prompts are deterministic.
func describeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		return fmt.Sprintf("%t", v)
	case float64, float32, int, int32, int64:
		return fmt.Sprintf("%v", v)
	case []any:
		var parts []string
		for _, entry := range v {
			if text := describeValue(entry); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " / ")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var parts []string
		for _, key := range keys {
			if text := describeValue(v[key]); text != "" {
				parts = append(parts, key+": "+text)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GiftContext carries a completed intake into job submission.
type GiftContext struct {
	Gift            *models.Gift
	HandoffSummary  *string
	AdditionalNotes *string
	Preferences     map[string]any
	Metadata        map[string]any
	TraceGroupID    *string
}

package jobs

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// RecommendationPayload is the schema-constrained JSON result the inference
// service must return. Validation failures are terminal job failures, never
// silently retried.
type RecommendationPayload struct {
	Sake               Sake           `json:"sake"`
	Summary            string         `json:"summary"`
	Reasoning          string         `json:"reasoning"`
	TastingHighlights  []string       `json:"tasting_highlights,omitempty"`
	ServingSuggestions []string       `json:"serving_suggestions,omitempty"`
	Shops              []ShopListing  `json:"shops"`
	PreferenceMap      *PreferenceMap `json:"preference_map,omitempty"`
	Alternatives       []Alternative  `json:"alternatives,omitempty"`
	FollowUpPrompt     *string        `json:"follow_up_prompt,omitempty"`
}

type Sake struct {
	ID                 *string        `json:"id,omitempty"`
	Name               string         `json:"name"`
	Brewery            *string        `json:"brewery,omitempty"`
	Region             *string        `json:"region,omitempty"`
	Type               *string        `json:"type,omitempty"`
	Alcohol            *float64       `json:"alcohol,omitempty"`
	SakeValue          *float64       `json:"sake_value,omitempty"`
	Acidity            *float64       `json:"acidity,omitempty"`
	Description        *string        `json:"description,omitempty"`
	TastingNotes       []string       `json:"tasting_notes,omitempty"`
	FoodPairing        []string       `json:"food_pairing,omitempty"`
	ServingTemperature []string       `json:"serving_temperature,omitempty"`
	ImageURL           string         `json:"image_url"`
	OriginSources      []string       `json:"origin_sources,omitempty"`
	PriceRange         *string        `json:"price_range,omitempty"`
	FlavorProfile      *FlavorProfile `json:"flavor_profile,omitempty"`
}

type FlavorProfile struct {
	Sweetness  *float64 `json:"sweetness,omitempty"`
	Lightness  *float64 `json:"lightness,omitempty"`
	Complexity *float64 `json:"complexity,omitempty"`
	Fruitiness *float64 `json:"fruitiness,omitempty"`
}

type ShopListing struct {
	Retailer         string   `json:"retailer"`
	URL              string   `json:"url"`
	Price            *float64 `json:"price,omitempty"`
	PriceText        *string  `json:"price_text,omitempty"`
	Currency         *string  `json:"currency,omitempty"`
	Availability     *string  `json:"availability,omitempty"`
	DeliveryEstimate *string  `json:"delivery_estimate,omitempty"`
	Source           *string  `json:"source,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
}

type PreferenceMap struct {
	Title   *string          `json:"title,omitempty"`
	Axes    []PreferenceAxis `json:"axes"`
	Summary *string          `json:"summary,omitempty"`
	Notes   *string          `json:"notes,omitempty"`
}

type PreferenceAxis struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Level    float64  `json:"level"`
	Evidence *string  `json:"evidence,omitempty"`
}

type Alternative struct {
	Name      string  `json:"name"`
	Highlight *string `json:"highlight,omitempty"`
	URL       *string `json:"url,omitempty"`
	PriceText *string `json:"price_text,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

const maxAlternatives = 2

var httpURLPattern = regexp.MustCompile(`^https?://.+`)

// ParsePayload decodes and validates a raw inference output. The returned
// error describes the first violation found; any error here means the job
// must fail, not complete with a partial result.
func ParsePayload(raw string) (*RecommendationPayload, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty response payload")
	}

	var payload RecommendationPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	if err := payload.validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (p *RecommendationPayload) validate() error {
	if strings.TrimSpace(p.Sake.Name) == "" {
		return fmt.Errorf("recommendation payload missing sake.name")
	}
	if !httpURLPattern.MatchString(p.Sake.ImageURL) {
		return fmt.Errorf("sake.image_url must be an http(s) URL, got %q", p.Sake.ImageURL)
	}
	if strings.TrimSpace(p.Summary) == "" {
		return fmt.Errorf("recommendation payload missing summary")
	}

	if len(p.Shops) == 0 {
		return fmt.Errorf("recommendation payload requires at least one shop listing")
	}
	for i, shop := range p.Shops {
		if strings.TrimSpace(shop.Retailer) == "" {
			return fmt.Errorf("shops[%d] missing retailer", i)
		}
		if strings.TrimSpace(shop.URL) == "" {
			return fmt.Errorf("shops[%d] missing url", i)
		}
	}

	if len(p.Alternatives) > maxAlternatives {
		return fmt.Errorf("recommendation payload allows at most %d alternatives, got %d",
			maxAlternatives, len(p.Alternatives))
	}
	for i, alt := range p.Alternatives {
		if strings.TrimSpace(alt.Name) == "" {
			return fmt.Errorf("alternatives[%d] missing name", i)
		}
	}

	if p.PreferenceMap != nil {
		if n := len(p.PreferenceMap.Axes); n < 3 || n > 6 {
			return fmt.Errorf("preference_map requires 3 to 6 axes, got %d", n)
		}
		for i, axis := range p.PreferenceMap.Axes {
			if axis.Key == "" || axis.Label == "" {
				return fmt.Errorf("preference_map.axes[%d] missing key or label", i)
			}
			if axis.Level < 1 || axis.Level > 5 {
				return fmt.Errorf("preference_map.axes[%d].level must be within [1, 5], got %v", i, axis.Level)
			}
		}
	}

	return nil
}

// payloadSchemaName identifies the structured-output format on the wire.
const payloadSchemaName = "SakeGiftRecommendation"

// payloadSchema is the JSON Schema sent with every submission to constrain
// the inference output to RecommendationPayload's shape.
var payloadSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["sake", "summary", "reasoning", "shops"],
  "properties": {
    "sake": {
      "type": "object",
      "additionalProperties": false,
      "required": ["name", "image_url"],
      "properties": {
        "id": {"type": ["string", "null"]},
        "name": {"type": "string", "minLength": 1},
        "brewery": {"type": ["string", "null"]},
        "region": {"type": ["string", "null"]},
        "type": {"type": ["string", "null"]},
        "alcohol": {"type": ["number", "null"]},
        "sake_value": {"type": ["number", "null"]},
        "acidity": {"type": ["number", "null"]},
        "description": {"type": ["string", "null"]},
        "tasting_notes": {"type": ["array", "null"], "items": {"type": "string"}},
        "food_pairing": {"type": ["array", "null"], "items": {"type": "string"}},
        "serving_temperature": {"type": ["array", "null"], "items": {"type": "string"}},
        "image_url": {"type": "string", "pattern": "^https?://.+"},
        "origin_sources": {"type": ["array", "null"], "items": {"type": "string"}},
        "price_range": {"type": ["string", "null"]},
        "flavor_profile": {
          "type": ["object", "null"],
          "additionalProperties": false,
          "properties": {
            "sweetness": {"type": ["number", "null"]},
            "lightness": {"type": ["number", "null"]},
            "complexity": {"type": ["number", "null"]},
            "fruitiness": {"type": ["number", "null"]}
          }
        }
      }
    },
    "summary": {"type": "string", "minLength": 1},
    "reasoning": {"type": "string"},
    "tasting_highlights": {"type": ["array", "null"], "items": {"type": "string"}},
    "serving_suggestions": {"type": ["array", "null"], "items": {"type": "string"}},
    "shops": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["retailer", "url"],
        "properties": {
          "retailer": {"type": "string", "minLength": 1},
          "url": {"type": "string", "minLength": 1},
          "price": {"type": ["number", "null"]},
          "price_text": {"type": ["string", "null"]},
          "currency": {"type": ["string", "null"]},
          "availability": {"type": ["string", "null"]},
          "delivery_estimate": {"type": ["string", "null"]},
          "source": {"type": ["string", "null"]},
          "notes": {"type": ["string", "null"]}
        }
      }
    },
    "preference_map": {
      "type": ["object", "null"],
      "additionalProperties": false,
      "required": ["axes"],
      "properties": {
        "title": {"type": ["string", "null"]},
        "axes": {
          "type": "array",
          "minItems": 3,
          "maxItems": 6,
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["key", "label", "level"],
            "properties": {
              "key": {"type": "string", "minLength": 1},
              "label": {"type": "string", "minLength": 1},
              "level": {"type": "number", "minimum": 1, "maximum": 5},
              "evidence": {"type": ["string", "null"]}
            }
          }
        },
        "summary": {"type": ["string", "null"]},
        "notes": {"type": ["string", "null"]}
      }
    },
    "alternatives": {
      "type": ["array", "null"],
      "maxItems": 2,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "highlight": {"type": ["string", "null"]},
          "url": {"type": ["string", "null"]},
          "price_text": {"type": ["string", "null"]},
          "notes": {"type": ["string", "null"]}
        }
      }
    },
    "follow_up_prompt": {"type": ["string", "null"]}
  }
}`)

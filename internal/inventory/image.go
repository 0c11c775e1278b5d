package inventory

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/MdSium003/AgamiOps/internal/coerce"
)

var (
	ErrImageRequired = errors.New("imageData (base64 data URL) required")
	ErrInvalidImage  = errors.New("invalid image data")
)

var (
	Qualities = []string{"Good", "Acceptable", "Poor"}

	dataURLPattern  = regexp.MustCompile(`(?s)^data:(image/[a-zA-Z0-9.+-]+);base64,(.*)$`)
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)
)

const imagePrompt = `You are a vision QA assistant. Given a product photo, estimate: (1) the count of visible items, (2) a short quality assessment Good/Acceptable/Poor with one reason, (3) the most likely product type (e.g., phone, dress, shoes, bottle, laptop, toy).
Return only JSON.
Required JSON schema:
{"estimatedCount":"integer >= 0","quality":"Good|Acceptable|Poor","productType":"string","note":"string"}
Note: If unsure, give your best estimate.`

type ImageAnalysis struct {
	File           string `json:"file"`
	EstimatedCount int    `json:"estimatedCount"`
	Quality        string `json:"quality"`
	ProductType    string `json:"productType"`
	Note           string `json:"note"`
}

func NormalizeImage(v any) ImageAnalysis {
	m := coerce.Map(coerce.Canonical(v))
	return ImageAnalysis{
		File:           coerce.String(m["file"], ""),
		EstimatedCount: coerce.NonNegativeInt(m["estimatedCount"], 1),
		Quality:        coerce.Enum(m["quality"], Qualities, "Good"),
		ProductType:    coerce.String(m["productType"], "Unknown"),
		Note:           coerce.String(m["note"], ""),
	}
}

func ImageFallback() any {
	return map[string]any{
		"estimatedCount": 1.0,
		"quality":        "Good",
		"productType":    "Unknown",
		"note":           "Vision model unavailable; defaulting to heuristic.",
	}
}

// ParseDataURL decodes a base64 image data URL.
func ParseDataURL(s string) (mimeType string, data []byte, err error) {
	if !strings.HasPrefix(s, "data:image/") {
		return "", nil, ErrImageRequired
	}
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return "", nil, ErrInvalidImage
	}
	data, err = base64.StdEncoding.DecodeString(strings.TrimSpace(m[2]))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return m[1], data, nil
}

// SafeFileName strips everything but letters, digits, '_', '.' and '-' and
// never returns a name that starts with a dot.
func SafeFileName(name string, now time.Time) string {
	safe := strings.TrimLeft(unsafeNameChars.ReplaceAllString(name, ""), ".")
	if safe == "" {
		return fmt.Sprintf("upload_%d.png", now.UnixMilli())
	}
	return safe
}

// Package extractor locates a PIX payment credential and a scannable visual
// code inside a payment-provider response whose schema is not a controlled
// contract. Providers rename, nest and re-shape fields between deploys, so
// instead of reading named fields the extractor walks every string leaf of
// the document and tests each one against a small set of predicates.
package extractor

import (
	"net/url"
	"strings"
)

const (
	// credentialPrefix is the fixed header of an EMV "copy & paste" PIX
	// payload (payload format indicator "00" with value "01").
	credentialPrefix = "000201"

	// credentialMinLen rejects strings that merely happen to contain the
	// EMV header. Real payloads run well past 100 characters.
	credentialMinLen = 40

	// inlineImageMinLen and inlineSampleLen bound the bare-base64 image
	// heuristic: candidates must be at least inlineImageMinLen long, and
	// only the first inlineSampleLen characters are inspected.
	inlineImageMinLen = 200
	inlineSampleLen   = 120

	dataURIImagePrefix = "data:image/"
	base64Marker       = ";base64,"
)

// VisualKind says how a visual code is carried.
type VisualKind string

const (
	VisualInline VisualKind = "inline"
	VisualRemote VisualKind = "remote"
)

// Visual is a scannable rendition of the credential: inline base64 image
// data (scheme prefix already stripped) or a remote image URL.
type Visual struct {
	Kind  VisualKind
	Value string
}

// Result is the best-effort extraction outcome. Either field may be empty.
type Result struct {
	Credential string
	Visual     *Visual
}

// Extract scans the decoded document first, then falls back to the raw
// response text for whichever candidate the structured walk did not find.
// First match wins, in document order. Extract never fails; an absent
// candidate is reported as an empty field.
func Extract(doc Value, raw string) Result {
	var res Result

	walkStrings(doc, func(s string) bool {
		if res.Credential == "" {
			if cred, ok := credentialFrom(s); ok {
				res.Credential = cred
			}
		}
		if res.Visual == nil {
			if vis, ok := visualFrom(s); ok {
				res.Visual = vis
			}
		}
		return res.Credential != "" && res.Visual != nil
	})

	if res.Credential == "" {
		res.Credential = credentialFromRaw(raw)
	}
	if res.Visual == nil {
		res.Visual = visualFromRaw(raw)
	}
	return res
}

// CorrelationID digs the provider transaction id out of a document, checking
// the usual field names at the top level and one level under "data".
func CorrelationID(doc Value) string {
	if id := LookupString(doc, "id", "transaction_id", "uuid"); id != "" {
		return id
	}
	if data, ok := Field(doc, "data"); ok {
		return LookupString(data, "id", "transaction_id", "uuid")
	}
	return ""
}

func credentialFrom(s string) (string, bool) {
	idx := strings.Index(s, credentialPrefix)
	if idx < 0 {
		return "", false
	}
	cand := s[idx:]
	if len(cand) < credentialMinLen {
		return "", false
	}
	return cand, true
}

// credentialFromRaw re-runs the credential predicate over unparsed response
// text. The candidate region is truncated at the first quote or escape so a
// credential on the far side of malformed JSON does not swallow trailing
// syntax.
func credentialFromRaw(raw string) string {
	idx := strings.Index(raw, credentialPrefix)
	if idx < 0 {
		return ""
	}
	cand := raw[idx:]
	if cut := strings.IndexAny(cand, `"\`); cut >= 0 {
		cand = cand[:cut]
	}
	if len(cand) < credentialMinLen {
		return ""
	}
	return cand
}

func visualFrom(s string) (*Visual, bool) {
	if strings.HasPrefix(s, dataURIImagePrefix) {
		if idx := strings.Index(s, base64Marker); idx >= 0 {
			return &Visual{Kind: VisualInline, Value: s[idx+len(base64Marker):]}, true
		}
		return nil, false
	}
	if len(s) >= inlineImageMinLen && isBase64Prefix(s[:inlineSampleLen]) {
		return &Visual{Kind: VisualInline, Value: s}, true
	}
	if isRemoteImageURL(s) {
		return &Visual{Kind: VisualRemote, Value: s}, true
	}
	return nil, false
}

func visualFromRaw(raw string) *Visual {
	idx := strings.Index(raw, dataURIImagePrefix)
	if idx < 0 {
		return nil
	}
	cand := raw[idx:]
	if cut := strings.IndexAny(cand, `"\`); cut >= 0 {
		cand = cand[:cut]
	}
	vis, ok := visualFrom(cand)
	if !ok {
		return nil
	}
	return vis
}

func isBase64Prefix(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '+' || c == '/' || c == '=':
		default:
			return false
		}
	}
	return true
}

var imageURLKeywords = []string{"qr", "image"}

func isRemoteImageURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	target := strings.ToLower(u.Path + "?" + u.RawQuery)
	for _, kw := range imageURLKeywords {
		if strings.Contains(target, kw) {
			return true
		}
	}
	return false
}

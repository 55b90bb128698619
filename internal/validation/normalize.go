package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dfcoelho/cri-extractor/constants"
)

var (
	reNonDigits = regexp.MustCompile(`\D`)
	reOrdinal   = regexp.MustCompile(`[ªº°]`)
	reLeadInt   = regexp.MustCompile(`^\d+`)

	// SRE/0042/2025 style, already in canonical shape modulo zero padding.
	reProcessShort = regexp.MustCompile(`^([A-Z]{2,3})/(\d+)/(\d{4})$`)
	// Long registry paths such as CVM/SRE/AUT/CRI/PRI/2025/590.
	reProcessLong = regexp.MustCompile(`/(\d{4})/(\d+)$`)

	rePunct          = regexp.MustCompile(`[.,;!?()]`)
	reSpaces         = regexp.MustCompile(`\s+`)
	reCorpSuffix     = regexp.MustCompile(`\b(SA|LTDA|EIRELI|ME|EPP)\b`)
	reCandidateSplit = regexp.MustCompile(`[;,]`)
)

var accentReplacer = strings.NewReplacer(
	"Á", "A", "À", "A", "Â", "A", "Ã", "A", "Ä", "A",
	"É", "E", "È", "E", "Ê", "E", "Ë", "E",
	"Í", "I", "Ì", "I", "Î", "I", "Ï", "I",
	"Ó", "O", "Ò", "O", "Ô", "O", "Õ", "O", "Ö", "O",
	"Ú", "U", "Ù", "U", "Û", "U", "Ü", "U",
	"Ç", "C",
)

// NormalizeCNPJ reduces any CNPJ rendering to its digits.
func NormalizeCNPJ(v any) string {
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return ""
		}
		s = fmt.Sprintf("%v", v)
	}
	return reNonDigits.ReplaceAllString(s, "")
}

// NormalizeValue reads a monetary amount from a JSON number, a plain
// decimal string (the registry CSV rendering, "20000000.00"), or a
// Brazilian-formatted string ("R$ 20.000.000,00") and rounds to cents.
// A dot is only a thousands separator when a decimal comma is present.
func NormalizeValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return round2(t), true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		s = strings.ReplaceAll(s, "R$", "")
		s = strings.TrimSpace(s)
		if !strings.Contains(s, ",") {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return round2(f), true
			}
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return round2(f), true
	default:
		return 0, false
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// NormalizeIntString reads an issue number from "3ª Emissão", "3", 3.0 and
// similar renderings.
func NormalizeIntString(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		s := strings.TrimSpace(reOrdinal.ReplaceAllString(t, ""))
		m := reLeadInt.FindString(s)
		if m == "" {
			return 0, false
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// NormalizeProcess canonicalizes a CVM process number to PFX/NNNN/YYYY.
// Already-canonical values pass through unchanged so the mapping is
// idempotent; long registry paths collapse to the SRE form.
func NormalizeProcess(v any) string {
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return ""
		}
		s = fmt.Sprintf("%v", v)
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if m := reProcessShort.FindStringSubmatch(s); m != nil {
		return m[1] + "/" + zeroPad(m[2]) + "/" + m[3]
	}
	if m := reProcessLong.FindStringSubmatch(s); m != nil {
		return "SRE/" + zeroPad(m[2]) + "/" + m[1]
	}
	return s
}

func zeroPad(num string) string {
	for len(num) < 4 {
		num = "0" + num
	}
	return num
}

// NormalizeName prepares an entity name for comparison: uppercase,
// accent-stripped, punctuation removed, corporate suffixes dropped.
func NormalizeName(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = accentReplacer.Replace(strings.ToUpper(strings.TrimSpace(s)))
	s = rePunct.ReplaceAllString(s, "")
	s = reCorpSuffix.ReplaceAllString(s, " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// NormalizeDate reduces "2025-03-10T00:00:00", "10/03/2025" and plain ISO
// dates to YYYY-MM-DD. Anything that does not parse as a real calendar date
// yields "".
func NormalizeDate(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.SplitN(s, " ", 2)[0]
	s = strings.SplitN(s, "T", 2)[0]
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02")
	}
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t.Format("2006-01-02")
	}
	return ""
}

// BuildMatchKey derives the dataset lookup key from the normalized CNPJ,
// issue number and process number. Any missing component yields "".
func BuildMatchKey(cnpj, emissao, processo any) string {
	c := NormalizeCNPJ(cnpj)
	e, ok := NormalizeIntString(emissao)
	p := NormalizeProcess(processo)
	if c == "" || !ok || p == "" {
		return ""
	}
	return fmt.Sprintf("%s_%d_%s", c, e, p)
}

// CleanProcessNumber splits a raw extracted field into candidate process
// numbers, dropping tokens that reference legislation rather than a filing
// (Lei, Resolução, Instrução, ...). The second return reports whether any
// candidate was discarded as a false positive.
func CleanProcessNumber(raw string) (string, bool) {
	parts := reCandidateSplit.Split(raw, -1)
	kept := make([]string, 0, len(parts))
	dropped := false
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if isProcessFalsePositive(p) {
			dropped = true
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "; "), dropped
}

func isProcessFalsePositive(candidate string) bool {
	norm := accentReplacer.Replace(strings.ToUpper(candidate))
	for _, tok := range strings.Fields(rePunct.ReplaceAllString(norm, " ")) {
		for _, marker := range constants.ProcessFalsePositiveMarkers {
			if tok == marker {
				return true
			}
		}
	}
	return false
}

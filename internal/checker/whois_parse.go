package checker

import (
	"strings"
	"time"

	whoisparser "github.com/likexian/whois-parser"

	"github.com/berckan/tldscout/internal/models"
)

// substantiveLength is the trimmed response size above which an unmatched
// WHOIS response is read as a registration record.
const substantiveLength = 100

// Patterns that mean the server refused to answer properly
var rateLimitPatterns = []string{
	"rate limit",
	"quota exceeded",
	"query limit",
	"limit exceeded",
	"too many requests",
	"too many queries",
	"exceeded the maximum",
	"please slow down",
}

var connectionFailurePatterns = []string{
	"timed out",
	"timeout",
	"connection refused",
	"connection reset",
	"could not connect",
	"unable to connect",
}

// Patterns that indicate domain is NOT registered (available)
var availablePatterns = []string{
	"no match",
	"not found",
	"no data found",
	"domain not found",
	"no entries found",
	"status: available",
	"status: free",
	"no object found",
	"object does not exist",
	"nothing found",
	"is available for registration",
	"domain is available",
	"no such domain",
	"has not been registered",
	"no matching record",
}

// Patterns that indicate domain IS registered (taken)
var takenPatterns = []string{
	"creation date",
	"registered",
	"registrar:",
	"name server",
	"domain status:",
	"registry domain id",
	"registrant:",
	"nserver:",
	"created:",
	"registry expiry date:",
	"expiration date:",
}

// Verdict is the classification of one WHOIS response.
type Verdict struct {
	Status models.DomainStatus
	Data   *models.WhoisData
}

// Classify maps a raw WHOIS response to a status. Rate limiting and
// connection failures come back as retryable errors; an ambiguous response
// is never an error.
func Classify(raw string) (Verdict, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Verdict{Status: models.StatusUnknown}, nil
	}
	lower := strings.ToLower(trimmed)

	// Failure phrases are only trusted outside registration records, whose
	// names and nameservers may contain them.
	if !isRegistrationRecord(lower) {
		if containsAny(lower, rateLimitPatterns) {
			return Verdict{}, &ProbeError{Message: "WHOIS rate limited by server", Transient: true}
		}
		if containsAny(lower, connectionFailurePatterns) {
			return Verdict{}, &ProbeError{Message: "WHOIS connection failed", Transient: true}
		}
	}
	if containsAny(lower, availablePatterns) {
		return Verdict{Status: models.StatusAvailable}, nil
	}
	if isReserved(lower) || containsAny(lower, takenPatterns) || len(trimmed) >= substantiveLength {
		return Verdict{Status: models.StatusTaken, Data: extractWhoisData(raw)}, nil
	}
	return Verdict{Status: models.StatusUnknown}, nil
}

// recordFields are line prefixes only a registration record carries.
var recordFields = []string{
	"domain name:",
	"domain:",
	"registry domain id:",
	"registrar:",
	"creation date:",
	"created:",
	"name server:",
	"nserver:",
}

// isRegistrationRecord reports whether any line of lower starts with a
// registration record field.
func isRegistrationRecord(lower string) bool {
	for _, line := range strings.Split(lower, "\n") {
		line = strings.TrimSpace(line)
		for _, f := range recordFields {
			if strings.HasPrefix(line, f) {
				return true
			}
		}
	}
	return false
}

// isReserved catches premium and registry-reserved names, which are not
// registrable even without a registration record.
func isReserved(lower string) bool {
	if strings.Contains(lower, "this name is reserved") {
		return true
	}
	return (strings.Contains(lower, "premium") || strings.Contains(lower, "platinum")) &&
		(strings.Contains(lower, "purchase") || strings.Contains(lower, "contact") ||
			strings.Contains(lower, "offer") || strings.Contains(lower, "reserved"))
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// extractWhoisData pulls registrar and dates out of raw, first through the
// structured parser and then by field name for whatever it missed.
func extractWhoisData(raw string) *models.WhoisData {
	data := &models.WhoisData{}

	if info, err := whoisparser.Parse(raw); err == nil {
		if info.Registrar != nil {
			data.Registrar = info.Registrar.Name
		}
		if info.Domain != nil {
			data.ExpirationDate = parseWhoisDate(info.Domain.ExpirationDate)
			data.CreationDate = parseWhoisDate(info.Domain.CreatedDate)
			data.NameServers = info.Domain.NameServers
		}
	}

	if data.Registrar == "" {
		data.Registrar = whoisField(raw, "Registrar")
	}
	if data.ExpirationDate == nil {
		data.ExpirationDate = firstDate(raw, "Registry Expiry Date", "Expiry Date", "Expiration Date", "paid-till")
	}
	if data.CreationDate == nil {
		data.CreationDate = firstDate(raw, "Creation Date", "Created", "Registered on")
	}

	if data.Registrar == "" && data.ExpirationDate == nil && data.CreationDate == nil && len(data.NameServers) == 0 {
		return nil
	}
	return data
}

func firstDate(body string, fields ...string) *time.Time {
	for _, f := range fields {
		if t := parseWhoisDate(whoisField(body, f)); t != nil {
			return t
		}
	}
	return nil
}

// whoisField returns the value of the first "field: value" line, ignoring case.
func whoisField(body, field string) string {
	prefix := strings.ToLower(field) + ":"
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), prefix) {
			return strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return ""
}

var whoisDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"02/01/2006",
}

func parseWhoisDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, f := range whoisDateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return &t
		}
	}
	return nil
}

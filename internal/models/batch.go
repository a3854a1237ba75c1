package models

// BatchFailure is one domain that did not produce a usable result.
type BatchFailure struct {
	Domain     string `json:"domain"`
	Error      string `json:"error"`
	RetryCount int    `json:"retryCount"`
}

// BatchResult aggregates every domain scheduled by one batch invocation.
type BatchResult struct {
	Successful         []DomainResult `json:"successful"`
	Failed             []BatchFailure `json:"failed"`
	TotalExecutionTime int64          `json:"totalExecutionTime"`
	TotalDomains       int            `json:"totalDomains"`
	SuccessRate        float64        `json:"successRate"`
}

// SuccessRate returns successful/total as a percentage, 0 for an empty batch.
func SuccessRate(successful, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}

// CheckRequest is the inbound shape of a multi-TLD check.
type CheckRequest struct {
	BaseDomain string   `json:"baseDomain"`
	TLDs       []string `json:"tlds,omitempty"`
}

// Summary counts results by status.
type Summary struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Taken     int `json:"taken"`
	Errors    int `json:"errors"`
	Unknown   int `json:"unknown"`
}

// CheckResponse is the outbound shape of a multi-TLD check.
type CheckResponse struct {
	BaseDomain    string         `json:"baseDomain"`
	Results       []DomainResult `json:"results"`
	ExecutionTime int64          `json:"executionTime"`
	Summary       Summary        `json:"summary"`
}

// Summarize counts results by status.
func Summarize(results []DomainResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusAvailable:
			s.Available++
		case StatusTaken:
			s.Taken++
		case StatusError:
			s.Errors++
		default:
			s.Unknown++
		}
	}
	return s
}

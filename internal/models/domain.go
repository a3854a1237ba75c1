package models

import "time"

// DomainStatus represents the availability status of a domain
type DomainStatus string

const (
	StatusAvailable DomainStatus = "available"
	StatusTaken     DomainStatus = "taken"
	StatusError     DomainStatus = "error"
	StatusChecking  DomainStatus = "checking"
	StatusUnknown   DomainStatus = "unknown"
)

// Terminal reports whether no further transition is allowed from s.
func (s DomainStatus) Terminal() bool {
	switch s {
	case StatusAvailable, StatusTaken, StatusError, StatusUnknown:
		return true
	}
	return false
}

// CheckMethod names the technique that produced a result.
type CheckMethod string

const (
	MethodDNS    CheckMethod = "dns"
	MethodWhois  CheckMethod = "whois"
	MethodHybrid CheckMethod = "hybrid"
)

// WhoisData is the registration detail pulled out of a WHOIS response.
type WhoisData struct {
	Registrar      string     `json:"registrar,omitempty"`
	CreationDate   *time.Time `json:"creationDate,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	NameServers    []string   `json:"nameServers,omitempty"`
}

// DomainResult holds the result of a domain check
type DomainResult struct {
	Domain        string       `json:"domain"`
	BaseDomain    string       `json:"baseDomain"`
	TLD           string       `json:"tld"`
	Status        DomainStatus `json:"status"`
	CheckMethod   CheckMethod  `json:"checkMethod"`
	LastChecked   time.Time    `json:"lastChecked"`
	ExecutionTime int64        `json:"executionTime,omitempty"`
	Error         string       `json:"error,omitempty"`
	Note          string       `json:"note,omitempty"`
	RetryCount    int          `json:"retryCount"`
	WhoisData     *WhoisData   `json:"whoisData,omitempty"`
}

// NewResult starts a result in the checking state.
func NewResult(domain string, method CheckMethod) DomainResult {
	return DomainResult{
		Domain:      domain,
		Status:      StatusChecking,
		CheckMethod: method,
		LastChecked: time.Now(),
	}
}

// Resolve moves r out of the checking state. It returns false and leaves r
// untouched when r is already terminal.
func (r *DomainResult) Resolve(status DomainStatus, errMsg string) bool {
	if r.Status.Terminal() || !status.Terminal() {
		return false
	}
	r.Status = status
	if status == StatusError {
		r.Error = errMsg
	} else {
		r.Error = ""
	}
	r.LastChecked = time.Now()
	return true
}

// Stamp records the elapsed time since start in milliseconds.
func (r *DomainResult) Stamp(start time.Time) {
	r.ExecutionTime = time.Since(start).Milliseconds()
}

package checker

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/berckan/tldscout/internal/models"
)

type fakeResolver struct {
	ip4Err     error
	ip6        []net.IP
	ip6Err     error
	mx         []*net.MX
	mxErr      error
	panicOnIP6 bool

	ip4Calls atomic.Int32
	ip6Calls atomic.Int32
	mxCalls  atomic.Int32
}

func (f *fakeResolver) LookupIP(_ context.Context, network, _ string) ([]net.IP, error) {
	if network == "ip4" {
		f.ip4Calls.Add(1)
		if f.ip4Err != nil {
			return nil, f.ip4Err
		}
		return []net.IP{net.ParseIP("93.184.216.34")}, nil
	}
	f.ip6Calls.Add(1)
	if f.panicOnIP6 {
		panic("resolver bug")
	}
	return f.ip6, f.ip6Err
}

func (f *fakeResolver) LookupMX(context.Context, string) ([]*net.MX, error) {
	f.mxCalls.Add(1)
	return f.mx, f.mxErr
}

// fakeWhoisClient replays responses in order, repeating the last one.
type fakeWhoisClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (f *fakeWhoisClient) Whois(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	var err error
	if len(f.errs) > 0 {
		err = f.errs[min(i, len(f.errs)-1)]
	}
	if err != nil {
		return "", err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no response configured")
	}
	return f.responses[min(i, len(f.responses)-1)], nil
}

func (f *fakeWhoisClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProbe struct {
	status  models.DomainStatus
	errMsg  string
	retries int
	data    *models.WhoisData
	calls   atomic.Int32
}

func (f *fakeProbe) Method() models.CheckMethod { return models.MethodDNS }

func (f *fakeProbe) CheckDomain(_ context.Context, domain string) models.DomainResult {
	f.calls.Add(1)
	r := models.NewResult(domain, models.MethodDNS)
	r.RetryCount = f.retries
	r.WhoisData = f.data
	r.Resolve(f.status, f.errMsg)
	return r
}

var fastQuery = models.QueryConfig{TimeoutMs: 1000, MaxRetries: 1, RetryDelayMs: 1}

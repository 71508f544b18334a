package mount

import (
	"time"

	"github.com/oblivioncth/clifp/internal/install"
)

// SelectForDaemon builds the Policy variant order TMount should try
// for the install's recognized daemon, per spec.md §4.2 ("TMount
// selects variants based on the daemon recorded in Core's install").
// A DaemonNone install has no mount transport at all, yielding an
// empty Policy whose Mount always reports the aggregate failure.
func SelectForDaemon(d install.Daemon, proxyEndpoint, routerBaseURL, qmpAddr string, httpIdleTimeout, qmpTimeout time.Duration) *Policy {
	switch d {
	case install.DaemonProxy:
		return NewPolicy(NewProxyMounter(proxyEndpoint, httpIdleTimeout))
	case install.DaemonQEMU:
		return NewPolicy(NewQMPMounter(qmpAddr, qmpTimeout))
	case install.DaemonRouter:
		return NewPolicy(NewRouterMounter(routerBaseURL, httpIdleTimeout))
	default:
		return NewPolicy()
	}
}

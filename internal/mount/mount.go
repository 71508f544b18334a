// Package mount implements TMount's three interchangeable data-pack
// mounting transports (proxy HTTP, QMP disk-attach, launcher router)
// behind one Mounter contract, plus the variant-selection policy that
// tries them in order and stops on first success, per spec.md §4.2.
package mount

import (
	"context"
	"fmt"

	"github.com/oblivioncth/clifp/internal/kernelerr"
)

// Domain codes under kernelerr.MountBlock (spec.md §3's "mount/bider/
// archive 1230-1235" partition).
const (
	errProxyUnreachable uint32 = kernelerr.MountBlock + 1
	errQMPFailed     uint32 = kernelerr.MountBlock + 2
	errRouterFailed   uint32 = kernelerr.MountBlock + 3
	errAllVariantsFailed uint32 = kernelerr.MountBlock + 4
)

// Mounter is the unified interface every mount transport implements:
// Mount blocks (suspending at its transport's own I/O point) until the
// pack is mounted or a kernelerr.Error explains why not; Abort requests
// early termination of an in-flight Mount.
type Mounter interface {
	Mount(ctx context.Context, gameDataID string, pathOnDisk string) kernelerr.Error
	Abort()
}

// Policy tries each Mounter in order, stopping at the first success
// and aggregating every variant's failure into one error if all fail -
// spec.md §4.2's TMount selection policy.
type Policy struct {
	variants []Mounter
}

// NewPolicy constructs a Policy that tries variants in the given
// order. Typical construction picks the subset matching the detected
// daemon (see SelectForDaemon).
func NewPolicy(variants ...Mounter) *Policy {
	return &Policy{variants: variants}
}

// Mount tries each configured variant in order, returning the first
// success. If every variant fails, it returns a single aggregate
// Critical error summarizing each variant's failure.
func (p *Policy) Mount(ctx context.Context, gameDataID, pathOnDisk string) kernelerr.Error {
	if len(p.variants) == 0 {
		return kernelerr.New(errAllVariantsFailed, kernelerr.Critical, "No mount transport is available for this install")
	}

	var failures []string
	for _, v := range p.variants {
		if err := v.Mount(ctx, gameDataID, pathOnDisk); err.Ok() {
			return kernelerr.Nil
		} else {
			failures = append(failures, err.Error())
		}
	}

	return kernelerr.New(errAllVariantsFailed, kernelerr.Critical, "All mount variants failed").
		WithDetails(fmt.Sprintf("%v", failures))
}

// Abort requests every configured variant to abort any in-flight
// mount attempt.
func (p *Policy) Abort() {
	for _, v := range p.variants {
		v.Abort()
	}
}

// Package network provisions the shared networks services rely on.
//
// Networks are handled before any service of a run starts, one at a time in
// declaration order, so two runs of the same engine never race to create
// the same network. External networks are only checked for existence;
// managed ones are created when missing.
package network
